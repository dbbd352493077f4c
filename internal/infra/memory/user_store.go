package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"health_notification_service/internal/domain/user"
)

type UserStore struct {
	mu    sync.Mutex
	users map[string]user.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]user.User)}
}

// Put stores u as-is. Used for fixtures.
func (s *UserStore) Put(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(*u)
}

func (s *UserStore) GetByID(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (s *UserStore) GetByDeviceToken(_ context.Context, token string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.HasDeviceToken() && u.DeviceToken.String == token {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (s *UserStore) ListWithDeviceToken(_ context.Context) ([]*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*user.User, 0)
	for _, u := range s.users {
		if u.HasDeviceToken() {
			c := cloneUser(u)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *UserStore) DeviceTokens(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := make(map[string]string, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok && u.HasDeviceToken() {
			tokens[id] = u.DeviceToken.String
		}
	}
	return tokens, nil
}

func (s *UserStore) RegisterDeviceToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for otherID, other := range s.users {
		if otherID != id && other.DeviceToken.String == token {
			other.DeviceToken = sql.NullString{}
			other.UpdatedAt = now
			s.users[otherID] = other
		}
	}
	u, ok := s.users[id]
	if !ok {
		u = user.User{ID: id, CreatedAt: now}
	}
	u.DeviceToken = sql.NullString{String: token, Valid: true}
	u.UpdatedAt = now
	s.users[id] = u
	return nil
}

func (s *UserStore) ClearDeviceToken(_ context.Context, id, staleToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !u.DeviceToken.Valid || u.DeviceToken.String != staleToken {
		return false, nil
	}
	u.DeviceToken = sql.NullString{}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return true, nil
}

func (s *UserStore) SavePreferences(_ context.Context, id string, prefs user.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	u, ok := s.users[id]
	if !ok {
		u = user.User{ID: id, CreatedAt: now}
	}
	u.Preferences = prefs
	u.PreferencesSaved = true
	u.UpdatedAt = now
	s.users[id] = cloneUser(u)
	return nil
}

func cloneUser(u user.User) user.User {
	times := make(map[string]string, len(u.Preferences.Times))
	for k, v := range u.Preferences.Times {
		times[k] = v
	}
	u.Preferences.Times = times
	return u
}
