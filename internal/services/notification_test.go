package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

func TestNotificationService_DisabledWithoutToken(t *testing.T) {
	ns := NewNotificationService("", "")

	assert.False(t, ns.Enabled())
	assert.NoError(t, ns.SendAlert(context.Background(), models.NewAlert(models.AlertLevelInfo, "x", "y", "edge-001")))
	assert.NoError(t, ns.SendPlanSummary(context.Background(), &models.DispatchPlan{}))
	assert.NoError(t, ns.SendReport(context.Background(), "report"))
}

func TestNotificationService_DisabledWithoutChatID(t *testing.T) {
	ns := NewNotificationService("123456:token", "")
	assert.False(t, ns.Enabled())
}

func TestNotificationService_FormatAlert(t *testing.T) {
	ns := NewNotificationService("", "")
	alert := models.NewAlert(models.AlertLevelCritical, "feed_unreachable_Maitencillo", "5 consecutive feed failures", "edge-001")
	alert.Node = "Maitencillo"

	text := ns.FormatAlert(alert)
	assert.Contains(t, text, "🚨")
	assert.Contains(t, text, "Feed Unreachable Maitencillo")
	assert.Contains(t, text, "CRITICAL")
	assert.Contains(t, text, "5 consecutive feed failures")
	assert.Contains(t, text, "Site: edge-001")
	assert.Contains(t, text, "Node: Maitencillo")
}

func TestNotificationService_FormatAlertLevels(t *testing.T) {
	ns := NewNotificationService("", "")

	tests := []struct {
		level string
		emoji string
	}{
		{models.AlertLevelInfo, "ℹ️"},
		{models.AlertLevelWarning, "⚠️"},
		{models.AlertLevelCritical, "🚨"},
	}
	for _, tt := range tests {
		alert := models.NewAlert(tt.level, "test_alert", "msg", "edge-001")
		assert.Contains(t, ns.FormatAlert(alert), tt.emoji)
	}
}

func TestNotificationService_FormatPlanSummary(t *testing.T) {
	ns := NewNotificationService("", "")
	plan := &models.DispatchPlan{
		Node:             "Maitencillo",
		Capacity:         1000,
		Efficiency:       0.92,
		ProjectedRevenue: 276000,
		ProjectedCost:    184000,
		ProjectedNet:     92000,
		NChargeHours:     4,
		NDischargeHours:  3,
		GeneratedAt:      time.Now(),
		HourlySchedule: []models.DispatchSlot{
			{Hour: 3, Action: models.ActionCharge, Price: 32.5, SocBefore: 20, SocAfter: 70},
			{Hour: 12, Action: models.ActionHold, Price: 40.0, SocBefore: 70, SocAfter: 70},
			{Hour: 20, Action: models.ActionDischarge, Price: 95.1, SocBefore: 70, SocAfter: 20},
		},
	}

	text := ns.FormatPlanSummary(plan)
	assert.Contains(t, text, "Dispatch Plan — Maitencillo")
	assert.Contains(t, text, "Charge hours: 4")
	assert.Contains(t, text, "92000 CLP")
	assert.Contains(t, text, "03:00 CHARGE @ 32.5")
	assert.Contains(t, text, "20:00 DISCHARGE @ 95.1")
	assert.NotContains(t, text, "12:00", "hold hours are omitted from the digest")
}

func TestNotificationService_FormatPlanSummary_AllHold(t *testing.T) {
	ns := NewNotificationService("", "")
	plan := &models.DispatchPlan{
		Node:        "Maitencillo",
		GeneratedAt: time.Now(),
		HourlySchedule: []models.DispatchSlot{
			{Hour: 0, Action: models.ActionHold},
			{Hour: 1, Action: models.ActionHold},
		},
	}

	text := ns.FormatPlanSummary(plan)
	require.Contains(t, text, "No trades scheduled")
}
