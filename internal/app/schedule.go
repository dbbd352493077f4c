// internal/app/schedule.go
package app

import (
	"sort"
	"strings"
	"time"

	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"
)

// localTimeLayouts are accepted for per-slot times of day.
var localTimeLayouts = []string{"15:04", "15:04:05"}

// BuildSchedule returns the day's slots for prefs on date (YYYY-MM-DD),
// ordered by scheduled instant. With skipPast, slots before now are dropped.
// It performs no I/O and never fails: bad times drop the slot, a bad
// timezone falls back to UTC, a bad date yields no slots.
func BuildSchedule(prefs user.Preferences, date string, now time.Time, skipPast bool) []notification.PlannedSlot {
	if !prefs.Enabled {
		return nil
	}
	day, err := time.Parse(notification.DateLayout, date)
	if err != nil {
		return nil
	}
	loc := resolveLocation(prefs.Timezone)

	var labels []string
	if prefs.SleepEnabled {
		labels = append(labels, notification.SleepSlots...)
	}
	if prefs.NutritionEnabled {
		labels = append(labels, notification.NutritionSlots...)
	}
	if prefs.HydrationEnabled {
		labels = append(labels, notification.HydrationSlots...)
	}

	slots := make([]notification.PlannedSlot, 0, len(labels))
	for _, label := range labels {
		kind, ok := notification.KindForSlot(label)
		if !ok {
			continue
		}
		hour, minute, sec, ok := parseLocalTime(prefs.Times[label])
		if !ok {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, sec, 0, loc).UTC()
		if skipPast && at.Before(now) {
			continue
		}
		slots = append(slots, notification.PlannedSlot{SlotLabel: label, Kind: kind, ScheduledAt: at})
	}

	// Stable keeps the fixed category order for slots sharing an instant.
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].ScheduledAt.Before(slots[j].ScheduledAt)
	})
	return slots
}

func resolveLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	// "Local" would make the result depend on the host.
	if name == "" || name == "Local" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseLocalTime(s string) (hour, minute, sec int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, false
	}
	for _, layout := range localTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}
