package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"health_notification_service/internal/domain/user"
	"health_notification_service/internal/infra/clock"

	"github.com/sirupsen/logrus"
)

// ErrInvalidPreferences is returned when stored preferences would be unusable.
var ErrInvalidPreferences = errors.New("invalid notification preferences")

// PreferenceView is what clients see for GET preferences.
type PreferenceView struct {
	Preferences user.Preferences `json:"preferences"`
	// Saved is false when the defaults are being returned.
	Saved          bool `json:"saved"`
	HasDeviceToken bool `json:"has_device_token"`
}

// PreferenceService manages device tokens and notification preferences.
type PreferenceService struct {
	users  user.Repository
	seeder *SeedService
	clock  clock.Clocker
	logger *logrus.Entry
}

func NewPreferenceService(users user.Repository, seeder *SeedService, clk clock.Clocker, logger *logrus.Entry) *PreferenceService {
	return &PreferenceService{
		users:  users,
		seeder: seeder,
		clock:  clk,
		logger: logger,
	}
}

// RegisterToken stores the device token for userID.
func (s *PreferenceService) RegisterToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty device token", ErrInvalidPreferences)
	}
	if err := s.users.RegisterDeviceToken(ctx, userID, token); err != nil {
		return fmt.Errorf("failed to register device token for %s: %w", userID, err)
	}
	s.logger.WithField("user_id", userID).Info("Device token registered")
	return nil
}

// GetPreferences returns stored preferences or the defaults.
func (s *PreferenceService) GetPreferences(ctx context.Context, userID string) (PreferenceView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return PreferenceView{Preferences: user.DefaultPreferences()}, nil
		}
		return PreferenceView{}, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	}
	if !u.PreferencesSaved {
		return PreferenceView{Preferences: user.DefaultPreferences(), HasDeviceToken: u.HasDeviceToken()}, nil
	}
	return PreferenceView{Preferences: u.Preferences, Saved: true, HasDeviceToken: u.HasDeviceToken()}, nil
}

// SavePreferences stores prefs and rewrites today's schedule to match.
func (s *PreferenceService) SavePreferences(ctx context.Context, userID string, prefs user.Preferences) (SeedResult, error) {
	if prefs.Times == nil {
		prefs.Times = map[string]string{}
	}
	if prefs.Timezone == "" {
		prefs.Timezone = "UTC"
	}
	if err := s.users.SavePreferences(ctx, userID, prefs); err != nil {
		return SeedResult{}, fmt.Errorf("failed to save preferences for %s: %w", userID, err)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return SeedResult{}, fmt.Errorf("failed to reload user %s: %w", userID, err)
	}

	res, err := s.seeder.ReseedUser(ctx, u, Today(s.clock))
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("Preferences saved but reseed failed")
		return res, err
	}
	return res, nil
}
