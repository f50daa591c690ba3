package feed

import (
	"strconv"
	"strings"
)

var updatePeriods = map[string]UpdatePeriod{
	"hourly":  UpdateHourly,
	"daily":   UpdateDaily,
	"weekly":  UpdateWeekly,
	"monthly": UpdateMonthly,
	"yearly":  UpdateYearly,
}

// NewSyndicationHints validates raw sy:updatePeriod / sy:updateFrequency
// values. Invalid parts are dropped; nil is returned when nothing survives.
func NewSyndicationHints(period, frequency string) *SyndicationHints {
	var hints SyndicationHints

	if p, ok := updatePeriods[strings.ToLower(strings.TrimSpace(period))]; ok {
		hints.UpdatePeriod = p
	}

	if n, err := strconv.Atoi(strings.TrimSpace(frequency)); err == nil && n > 0 {
		hints.UpdateFrequency = &n
	}

	if hints.UpdatePeriod == "" && hints.UpdateFrequency == nil {
		return nil
	}
	return &hints
}
