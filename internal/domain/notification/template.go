// internal/domain/notification/template.go
package notification

import (
	"strconv"
	"strings"

	"health_notification_service/internal/domain/delivery"
)

const (
	// ReminderPrefix is prepended to the title of every reminder send.
	ReminderPrefix = "⏰ Reminder: "
	// VolumePlaceholder in a body is replaced by the hydration volume.
	VolumePlaceholder = "{ml}"
	// DefaultHydrationML is rendered when no volume is configured.
	DefaultHydrationML = 250
)

// Template is the title/body for a kind.
type Template struct {
	Kind  Kind
	Title string
	Body  string
	Emoji string
	// HydrationML fills VolumePlaceholder; zero means DefaultHydrationML.
	HydrationML int
}

// WithHydrationML returns a copy of t rendering ml as the drink volume.
func (t Template) WithHydrationML(ml int) Template {
	t.HydrationML = ml
	return t
}

// Render builds the flat push payload for one send. reminderCount is 0 for the
// first send, 1 and 2 for the two reminders.
func (t Template) Render(userID, slotLabel, date string, reminderCount int) delivery.Payload {
	isReminder := reminderCount > 0
	title := t.Title
	if isReminder {
		title = ReminderPrefix + title
	}
	ml := t.HydrationML
	if ml <= 0 {
		ml = DefaultHydrationML
	}
	body := strings.ReplaceAll(t.Body, VolumePlaceholder, strconv.Itoa(ml))
	actions := make([]string, len(PushActions))
	for i, a := range PushActions {
		actions[i] = string(a)
	}
	return delivery.Payload{
		delivery.KeyKind:          string(t.Kind),
		delivery.KeySlot:          slotLabel,
		delivery.KeyDate:          date,
		delivery.KeyUser:          userID,
		delivery.KeyTitle:         title,
		delivery.KeyBody:          body,
		delivery.KeyActions:       strings.Join(actions, ","),
		delivery.KeyIsReminder:    strconv.FormatBool(isReminder),
		delivery.KeyReminderCount: strconv.Itoa(reminderCount),
		delivery.KeyEmoji:         t.Emoji,
	}
}

// TemplateFor returns the template for k.
func TemplateFor(k Kind) (Template, bool) {
	spec, ok := Lookup(k)
	if !ok {
		return Template{}, false
	}
	return spec.Template, true
}
