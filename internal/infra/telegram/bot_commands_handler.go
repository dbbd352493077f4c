// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"strconv"
	"strings"

	"health_notification_service/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBotCommands wires /start (chat linking) and /help.
func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	preferences *app.PreferenceService,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		args := c.Args()
		if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
			return c.Send("Hi! Send /start <your user id> to receive health reminders in this chat.")
		}
		userID := strings.TrimSpace(args[0])

		if err := preferences.RegisterToken(ctx, userID, strconv.FormatInt(senderID, 10)); err != nil {
			logCtx.WithError(err).Error("Failed to link chat")
			return c.Send("Could not link this chat right now. Please try again later.")
		}
		logCtx.WithField("user_id", userID).Info("Chat linked")
		return c.Send("This chat is now linked. Reminders will arrive here once they are enabled in your preferences.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		var helpText strings.Builder
		helpText.WriteString("I send wake, meal, hydration and bedtime reminders. Tap a button under a reminder to log it or snooze it.\n\n")
		helpText.WriteString("`/start <user id>` - link this chat to your account\n")
		helpText.WriteString("`/help` - show this message")
		if senderID == adminTelegramID {
			helpText.WriteString("\n\nAdmin:\n")
			helpText.WriteString("`/seed [YYYY-MM-DD]` - seed slot states\n")
			helpText.WriteString("`/cycle` - run one reminder cycle\n")
			helpText.WriteString("`/status <user id> [YYYY-MM-DD]` - list a user's slots")
		}
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}
