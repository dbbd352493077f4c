// Package delivery holds transport-independent gateway implementations.
package delivery

import (
	"context"

	domain "health_notification_service/internal/domain/delivery"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LogGateway writes every push to the log and reports success. It is the
// channel for local runs without FCM or Telegram credentials.
type LogGateway struct {
	logger *logrus.Entry
}

func NewLogGateway(logger *logrus.Entry) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, token string, payload domain.Payload) domain.Result {
	id := uuid.NewString()
	fields := logrus.Fields{"message_id": id, "token_suffix": tokenSuffix(token)}
	for k, v := range payload {
		fields[k] = v
	}
	g.logger.WithFields(fields).Info("Push notification")
	return domain.Ok(id)
}

func tokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return "..." + token[len(token)-6:]
}
