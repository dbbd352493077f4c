// internal/infra/telegram/gateway.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"health_notification_service/internal/domain/delivery"
	"health_notification_service/internal/domain/notification"

	"gopkg.in/telebot.v3"
)

// callbackPrefix starts the data of every quick-action button.
const callbackPrefix = "qa"

var buttonLabels = map[notification.ActionID]string{
	notification.ActionYes:      "✅ Yes",
	notification.ActionSnooze15: "⏳ 15 min",
	notification.ActionSnooze30: "⏳ 30 min",
}

// Sender is the part of *telebot.Bot the gateway needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Gateway implements delivery.Gateway over a Telegram bot. The device token
// is the numeric chat ID the user linked with /start.
type Gateway struct {
	bot Sender
}

func NewGateway(bot Sender) *Gateway {
	return &Gateway{bot: bot}
}

// Send renders payload as a message with one inline button per push action.
// telebot has no context support; callers bound the wait themselves.
func (g *Gateway) Send(_ context.Context, token string, payload delivery.Payload) delivery.Result {
	chatID, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return delivery.Failed(delivery.ErrorKindTokenInvalid, fmt.Errorf("token %q is not a chat id: %w", token, err))
	}

	text := payload[delivery.KeyTitle] + "\n" + payload[delivery.KeyBody]
	markup := &telebot.ReplyMarkup{}
	var row []telebot.InlineButton
	for _, a := range strings.Split(payload[delivery.KeyActions], ",") {
		id := notification.ActionID(a)
		label, ok := buttonLabels[id]
		if !ok {
			continue
		}
		row = append(row, telebot.InlineButton{
			Text: label,
			Data: CallbackData(id, payload[delivery.KeySlot], payload[delivery.KeyDate]),
		})
	}
	if len(row) > 0 {
		markup.InlineKeyboard = [][]telebot.InlineButton{row}
	}

	msg, err := g.bot.Send(&telebot.User{ID: chatID}, text, &telebot.SendOptions{ReplyMarkup: markup})
	if err != nil {
		return delivery.Failed(classify(err), err)
	}
	return delivery.Ok(strconv.Itoa(msg.ID))
}

func classify(err error) delivery.ErrorKind {
	switch {
	case errors.Is(err, telebot.ErrBlockedByUser),
		errors.Is(err, telebot.ErrChatNotFound),
		errors.Is(err, telebot.ErrUserIsDeactivated):
		return delivery.ErrorKindTokenInvalid
	}
	return delivery.ErrorKindTransient
}

// CallbackData encodes a quick action as "qa|<action>|<slot>|<date>".
func CallbackData(action notification.ActionID, slot, date string) string {
	return strings.Join([]string{callbackPrefix, string(action), slot, date}, "|")
}

// ParseCallbackData is the inverse of CallbackData.
func ParseCallbackData(data string) (action notification.ActionID, slot, date string, err error) {
	parts := strings.Split(strings.TrimSpace(data), "|")
	if len(parts) != 4 || parts[0] != callbackPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid callback data format: %q", data)
	}
	return notification.ActionID(parts[1]), parts[2], parts[3], nil
}
