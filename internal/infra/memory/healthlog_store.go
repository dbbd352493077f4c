package memory

import (
	"context"
	"sync"

	"health_notification_service/internal/domain/healthlog"
)

// DailyLog is the in-memory shape of one (user, date) health log.
type DailyLog struct {
	WakeTime  string
	BedTime   string
	Hydration []healthlog.HydrationEntry
	Meals     map[string]string
}

type logKey struct {
	userID string
	date   string
}

type HealthLogStore struct {
	mu   sync.Mutex
	logs map[logKey]*DailyLog
}

func NewHealthLogStore() *HealthLogStore {
	return &HealthLogStore{logs: make(map[logKey]*DailyLog)}
}

func (s *HealthLogStore) SetWakeTime(_ context.Context, userID, date, hhmm string) error {
	s.with(userID, date, func(l *DailyLog) { l.WakeTime = hhmm })
	return nil
}

func (s *HealthLogStore) SetBedTime(_ context.Context, userID, date, hhmm string) error {
	s.with(userID, date, func(l *DailyLog) { l.BedTime = hhmm })
	return nil
}

func (s *HealthLogStore) AppendHydration(_ context.Context, userID, date string, entry healthlog.HydrationEntry) error {
	s.with(userID, date, func(l *DailyLog) { l.Hydration = append(l.Hydration, entry) })
	return nil
}

func (s *HealthLogStore) MarkMeal(_ context.Context, userID, date, meal, flag string) error {
	s.with(userID, date, func(l *DailyLog) { l.Meals[meal] = flag })
	return nil
}

// Day returns a copy of the log for (userID, date).
func (s *HealthLogStore) Day(userID, date string) (DailyLog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[logKey{userID, date}]
	if !ok {
		return DailyLog{}, false
	}
	out := DailyLog{
		WakeTime:  l.WakeTime,
		BedTime:   l.BedTime,
		Hydration: append([]healthlog.HydrationEntry(nil), l.Hydration...),
		Meals:     make(map[string]string, len(l.Meals)),
	}
	for k, v := range l.Meals {
		out.Meals[k] = v
	}
	return out, true
}

func (s *HealthLogStore) with(userID, date string, fn func(*DailyLog)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := logKey{userID, date}
	l, ok := s.logs[k]
	if !ok {
		l = &DailyLog{Meals: map[string]string{}}
		s.logs[k] = l
	}
	fn(l)
}
