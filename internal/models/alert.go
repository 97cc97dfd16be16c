package models

import (
	"time"

	"github.com/google/uuid"
)

// Alert severity levels.
const (
	AlertLevelInfo     = "INFO"
	AlertLevelWarning  = "WARNING"
	AlertLevelCritical = "CRITICAL"
)

// Alert represents one fired alert event
type Alert struct {
	ID         string     `json:"alert_id"`
	Level      string     `json:"level"`
	Name       string     `json:"name"`
	Message    string     `json:"message"`
	SiteID     string     `json:"site_id"`
	Node       string     `json:"node,omitempty"`
	FiredAt    time.Time  `json:"fired_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// NewAlert creates a new unresolved alert with a fresh ID.
func NewAlert(level, name, message, siteID string) *Alert {
	return &Alert{
		ID:      uuid.New().String()[:8],
		Level:   level,
		Name:    name,
		Message: message,
		SiteID:  siteID,
		FiredAt: time.Now(),
	}
}

// Resolve marks the alert resolved at the current time.
func (a *Alert) Resolve() {
	now := time.Now()
	a.Resolved = true
	a.ResolvedAt = &now
}

// Age returns how long ago the alert fired.
func (a *Alert) Age() time.Duration {
	return time.Since(a.FiredAt)
}
