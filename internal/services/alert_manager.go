package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

const (
	defaultDedupWindow = 60 * time.Second
	maxAlertHistory    = 200
)

// AlertManager tracks operational alerts for one site. Repeated fires of
// the same alert name inside the dedup window collapse into the original
// alert instead of spamming the history and the notifier.
type AlertManager struct {
	mu          sync.Mutex
	siteID      string
	active      map[string]*models.Alert
	history     []*models.Alert
	dedupWindow time.Duration
	notifier    Notifier
}

// NewAlertManager creates an alert manager. The notifier may be nil.
func NewAlertManager(siteID string, notifier Notifier) *AlertManager {
	return &AlertManager{
		siteID:      siteID,
		active:      make(map[string]*models.Alert),
		dedupWindow: defaultDedupWindow,
		notifier:    notifier,
	}
}

// SetDedupWindow overrides the duplicate-suppression window.
func (am *AlertManager) SetDedupWindow(d time.Duration) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.dedupWindow = d
}

// Fire raises an alert. If an unresolved alert with the same name fired
// within the dedup window, the existing alert is returned unchanged.
func (am *AlertManager) Fire(level, name, message string) *models.Alert {
	am.mu.Lock()

	if existing, ok := am.active[name]; ok && !existing.Resolved && existing.Age() < am.dedupWindow {
		am.mu.Unlock()
		return existing
	}

	alert := models.NewAlert(level, name, message, am.siteID)
	am.active[name] = alert
	am.history = append(am.history, alert)
	if len(am.history) > maxAlertHistory {
		am.history = am.history[len(am.history)-maxAlertHistory:]
	}
	notifier := am.notifier
	am.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"level":    level,
		"name":     name,
	}).Warn(message)

	if notifier != nil && notifier.Enabled() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := notifier.SendAlert(ctx, alert); err != nil {
				logrus.WithError(err).WithField("alert_id", alert.ID).Warn("Failed to deliver alert notification")
			}
		}()
	}

	return alert
}

// Resolve marks the named alert resolved. Returns false when no active
// alert carries that name.
func (am *AlertManager) Resolve(name string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()

	alert, ok := am.active[name]
	if !ok || alert.Resolved {
		return false
	}
	alert.Resolve()
	delete(am.active, name)
	return true
}

// ResolveAll resolves every active alert and returns how many it closed.
func (am *AlertManager) ResolveAll() int {
	am.mu.Lock()
	defer am.mu.Unlock()

	var resolved int
	for name, alert := range am.active {
		if !alert.Resolved {
			alert.Resolve()
			resolved++
		}
		delete(am.active, name)
	}
	return resolved
}

// Active returns unresolved alerts ordered oldest first.
func (am *AlertManager) Active() []*models.Alert {
	am.mu.Lock()
	defer am.mu.Unlock()

	alerts := make([]*models.Alert, 0, len(am.active))
	for _, alert := range am.active {
		if !alert.Resolved {
			alerts = append(alerts, alert)
		}
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].FiredAt.Before(alerts[j].FiredAt)
	})
	return alerts
}

// History returns the most recent fired alerts, newest last.
func (am *AlertManager) History(limit int) []*models.Alert {
	am.mu.Lock()
	defer am.mu.Unlock()

	if limit <= 0 || limit > len(am.history) {
		limit = len(am.history)
	}
	out := make([]*models.Alert, limit)
	copy(out, am.history[len(am.history)-limit:])
	return out
}

// Summary builds the alert list response for the API.
func (am *AlertManager) Summary() models.AlertsResponse {
	alerts := am.Active()

	var critical, warning int
	for _, alert := range alerts {
		switch alert.Level {
		case models.AlertLevelCritical:
			critical++
		case models.AlertLevelWarning:
			warning++
		}
	}

	return models.AlertsResponse{
		Alerts:    alerts,
		Count:     len(alerts),
		Critical:  critical,
		Warning:   warning,
		Timestamp: time.Now(),
	}
}
