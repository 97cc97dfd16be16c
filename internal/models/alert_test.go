package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAlert(t *testing.T) {
	alert := NewAlert(AlertLevelWarning, "LOW_SPREAD", "spread 12.5 below minimum 30", "edge-001")

	assert.Len(t, alert.ID, 8)
	assert.Equal(t, AlertLevelWarning, alert.Level)
	assert.Equal(t, "LOW_SPREAD", alert.Name)
	assert.Equal(t, "spread 12.5 below minimum 30", alert.Message)
	assert.Equal(t, "edge-001", alert.SiteID)
	assert.False(t, alert.Resolved)
	assert.Nil(t, alert.ResolvedAt)
	assert.WithinDuration(t, time.Now(), alert.FiredAt, time.Second)
}

func TestNewAlert_UniqueIDs(t *testing.T) {
	a := NewAlert(AlertLevelInfo, "A", "", "edge-001")
	b := NewAlert(AlertLevelInfo, "B", "", "edge-001")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAlert_Resolve(t *testing.T) {
	alert := NewAlert(AlertLevelCritical, "MODEL_DEGRADED", "inference failed", "edge-001")

	alert.Resolve()

	assert.True(t, alert.Resolved)
	assert.NotNil(t, alert.ResolvedAt)
	assert.WithinDuration(t, time.Now(), *alert.ResolvedAt, time.Second)
}

func TestAlert_Age(t *testing.T) {
	alert := NewAlert(AlertLevelInfo, "TEST", "", "edge-001")
	alert.FiredAt = time.Now().Add(-90 * time.Second)

	age := alert.Age()
	assert.GreaterOrEqual(t, age, 90*time.Second)
	assert.Less(t, age, 92*time.Second)
}
