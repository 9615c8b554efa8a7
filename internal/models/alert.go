package models

import "time"

// AlertCondition is the direction of a price alert.
type AlertCondition string

const (
	AlertAbove AlertCondition = "above"
	AlertBelow AlertCondition = "below"
)

// Valid reports whether the condition is a known alert direction.
func (c AlertCondition) Valid() bool {
	return c == AlertAbove || c == AlertBelow
}

// Alert is a user-defined price threshold on an asset. Once triggered it
// stays triggered (and inactive) until the user re-arms it.
type Alert struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	AssetID     string         `json:"asset_id"`
	Condition   AlertCondition `json:"condition"`
	TargetPrice float64        `json:"target_price"`
	Active      bool           `json:"active"`
	Triggered   bool           `json:"triggered"`
	TriggeredAt *time.Time     `json:"triggered_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsTriggered reports whether the given price crosses the alert threshold.
func (a *Alert) IsTriggered(currentPrice float64) bool {
	if !a.Active || currentPrice <= 0 {
		return false
	}
	switch a.Condition {
	case AlertAbove:
		return currentPrice >= a.TargetPrice
	case AlertBelow:
		return currentPrice <= a.TargetPrice
	}
	return false
}
