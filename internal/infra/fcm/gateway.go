// Package fcm delivers data-only pushes through the Firebase Cloud Messaging HTTP v1 API.
package fcm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"health_notification_service/internal/domain/delivery"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	androidPriority = "HIGH"
	messageTTL      = "3600s"
)

// Gateway implements delivery.Gateway on top of the FCM v1 client.
type Gateway struct {
	svc    *fcm.Service
	parent string
	logger *logrus.Entry
}

// CredentialOptions loads a service-account JSON file into client options.
func CredentialOptions(ctx context.Context, credentialsPath string) ([]option.ClientOption, error) {
	// #nosec G304 -- path is from trusted configuration.
	credsJSON, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read firebase credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, credsJSON, fcm.FirebaseMessagingScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse firebase credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

// NewGateway builds the FCM client for projectID.
func NewGateway(ctx context.Context, projectID string, logger *logrus.Entry, opts ...option.ClientOption) (*Gateway, error) {
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init fcm client: %w", err)
	}
	return &Gateway{
		svc:    svc,
		parent: "projects/" + projectID,
		logger: logger,
	}, nil
}

// Send pushes payload as a data-only message. It never retries.
func (g *Gateway) Send(ctx context.Context, token string, payload delivery.Payload) delivery.Result {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Data:  payload,
			Android: &fcm.AndroidConfig{
				Priority: androidPriority,
				Ttl:      messageTTL,
			},
		},
	}

	msg, err := g.svc.Projects.Messages.Send(g.parent, req).Context(ctx).Do()
	if err != nil {
		kind := Classify(err)
		g.logger.WithError(err).WithFields(logrus.Fields{
			"error_kind": kind,
			"kind":       payload[delivery.KeyKind],
			"slot":       payload[delivery.KeySlot],
		}).Debug("FCM send failed")
		return delivery.Failed(kind, err)
	}
	return delivery.Ok(msg.Name)
}

// Classify maps an FCM error to a delivery error kind. Unregistered, invalid
// or mismatched tokens are permanent; everything else is retried next cycle.
func Classify(err error) delivery.ErrorKind {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return delivery.ErrorKindTransient
	}
	msg := strings.ToLower(gerr.Message)
	switch gerr.Code {
	case http.StatusNotFound:
		return delivery.ErrorKindTokenInvalid
	case http.StatusForbidden:
		if strings.Contains(msg, "sender") {
			return delivery.ErrorKindTokenInvalid
		}
	case http.StatusBadRequest:
		if strings.Contains(msg, "registration token") || strings.Contains(msg, "unregistered") {
			return delivery.ErrorKindTokenInvalid
		}
	}
	return delivery.ErrorKindTransient
}
