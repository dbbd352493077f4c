// internal/infra/telegram/quick_action_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"health_notification_service/internal/app"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// QuickActions applies inline-button presses to slot states.
type QuickActions struct {
	actions *app.ActionService
	users   user.Repository
	logger  *logrus.Entry
}

func NewQuickActions(actions *app.ActionService, users user.Repository, logger *logrus.Entry) *QuickActions {
	return &QuickActions{actions: actions, users: users, logger: logger}
}

// Register wires the callback handler on b.
func (q *QuickActions) Register(ctx context.Context, b *telebot.Bot) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		reply, err := q.Handle(ctx, c.Sender().ID, c.Callback().Data)
		if err != nil {
			c.Bot().OnError(err, c)
		}
		return c.Respond(&telebot.CallbackResponse{Text: reply})
	})
}

// Handle processes one callback from chatID and returns the toast text.
func (q *QuickActions) Handle(ctx context.Context, chatID int64, data string) (string, error) {
	logCtx := q.logger.WithFields(logrus.Fields{"sender_id": chatID, "data": data})

	action, slot, date, err := ParseCallbackData(data)
	if err != nil {
		logCtx.Warn("Unhandled callback data")
		return "Unknown action.", err
	}

	u, err := q.users.GetByDeviceToken(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			logCtx.Warn("Callback from an unlinked chat")
			return "This chat is not linked to an account. Use /start <user id>.", nil
		}
		return "Something went wrong.", fmt.Errorf("failed to look up user for chat %d: %w", chatID, err)
	}

	out, err := q.actions.Handle(ctx, app.ActionRequest{
		UserID:    u.ID,
		SlotLabel: slot,
		Action:    action,
		Date:      date,
	})
	switch {
	case err == nil:
	case errors.Is(err, notification.ErrStateNotFound):
		return "This reminder no longer exists.", nil
	case errors.Is(err, app.ErrSlotClosed):
		return "This reminder is already closed.", nil
	case errors.Is(err, app.ErrUnknownAction), errors.Is(err, app.ErrInvalidDate):
		return "Unknown action.", nil
	default:
		return "Something went wrong.", fmt.Errorf("error processing %s for slot %s: %w", action, slot, err)
	}

	logCtx.WithFields(logrus.Fields{"user_id": u.ID, "status": out.Status}).Info("Quick action applied")
	switch {
	case out.AlreadyResolved:
		return "Already logged 👍", nil
	case out.ResendAt != nil:
		return fmt.Sprintf("OK, I'll remind you at %s UTC.", out.ResendAt.Format("15:04")), nil
	case out.HydrationML > 0:
		return fmt.Sprintf("Logged %d ml 💧", out.HydrationML), nil
	}
	return "Logged ✅", nil
}
