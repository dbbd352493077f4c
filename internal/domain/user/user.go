package user

import (
	"database/sql"
	"time"
)

// User is the read-only snapshot of a profile the reminder pipeline needs.
type User struct {
	ID          string
	Name        string
	DeviceToken sql.NullString
	Preferences Preferences

	// PreferencesSaved is false until the user stores preferences once.
	PreferencesSaved bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasDeviceToken reports whether the user can receive pushes.
func (u *User) HasDeviceToken() bool {
	return u.DeviceToken.Valid && u.DeviceToken.String != ""
}

// Preferences drive the daily schedule.
type Preferences struct {
	Enabled          bool              `json:"enabled"`
	SleepEnabled     bool              `json:"sleep_enabled"`
	NutritionEnabled bool              `json:"nutrition_enabled"`
	HydrationEnabled bool              `json:"hydration_enabled"`
	Timezone         string            `json:"timezone"`
	Times            map[string]string `json:"times"` // slot label -> local "HH:MM"
}

// DefaultPreferences is returned to clients that have never saved preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		Enabled:          false,
		SleepEnabled:     true,
		NutritionEnabled: true,
		HydrationEnabled: true,
		Timezone:         "UTC",
		Times: map[string]string{
			"wake":            "07:00",
			"breakfast":       "08:00",
			"mid_morning":     "10:30",
			"lunch":           "13:00",
			"afternoon_break": "16:00",
			"dinner":          "19:30",
			"post_dinner":     "21:00",
			"bedtime":         "22:30",
			"hydration_1":     "08:30",
			"hydration_2":     "10:00",
			"hydration_3":     "11:30",
			"hydration_4":     "13:30",
			"hydration_5":     "15:00",
			"hydration_6":     "16:30",
			"hydration_7":     "18:00",
			"hydration_8":     "20:00",
		},
	}
}
