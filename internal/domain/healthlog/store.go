// Package healthlog is the contract of the daily health-log collaborator.
package healthlog

import "context"

// Source values recorded on entries written from a notification action.
const SourceNotification = "notification"

// HydrationEntry is one water intake record.
type HydrationEntry struct {
	Time   string // local HH:MM
	ML     int
	Source string
}

// Store appends/merges facts into the (user, date) log, creating the day if absent.
type Store interface {
	SetWakeTime(ctx context.Context, userID, date, hhmm string) error
	SetBedTime(ctx context.Context, userID, date, hhmm string) error
	AppendHydration(ctx context.Context, userID, date string, entry HydrationEntry) error
	MarkMeal(ctx context.Context, userID, date, meal, flag string) error
}
