package user

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no user matches.
var ErrUserNotFound = errors.New("user not found")

// Repository is the user/preferences collaborator as seen by the reminder pipeline.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByDeviceToken(ctx context.Context, token string) (*User, error)
	// ListWithDeviceToken returns every user that has a registered token.
	ListWithDeviceToken(ctx context.Context) ([]*User, error)
	// DeviceTokens resolves tokens for many users in one round trip. Users
	// without a token are absent from the result.
	DeviceTokens(ctx context.Context, ids []string) (map[string]string, error)
	RegisterDeviceToken(ctx context.Context, id, token string) error
	// ClearDeviceToken removes the token only if it still equals staleToken.
	ClearDeviceToken(ctx context.Context, id, staleToken string) (bool, error)
	SavePreferences(ctx context.Context, id string, prefs Preferences) error
}
