package httpapi

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"health_notification_service/internal/app"
	"health_notification_service/internal/domain/notification"
	"health_notification_service/internal/domain/user"

	"github.com/julienschmidt/httprouter"
)

// RegisterTokenRequest links a device token to a user.
type RegisterTokenRequest struct {
	UID   string `json:"uid" validate:"required"`
	Token string `json:"token" validate:"required"`
}

// PreferencesRequest replaces a user's notification preferences. Omitted
// category toggles default to enabled.
type PreferencesRequest struct {
	UID              string            `json:"uid" validate:"required"`
	Enabled          *bool             `json:"enabled"`
	SleepEnabled     *bool             `json:"sleep_enabled"`
	NutritionEnabled *bool             `json:"nutrition_enabled"`
	HydrationEnabled *bool             `json:"hydration_enabled"`
	Timezone         string            `json:"timezone" validate:"omitempty,timezone"`
	Times            map[string]string `json:"times" validate:"omitempty,dive,keys,slotlabel,endkeys,datetime=15:04"`
}

// AckRequest dismisses a slot without logging.
type AckRequest struct {
	UID       string `json:"uid" validate:"required"`
	SlotLabel string `json:"slot_label" validate:"required"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// QuickLogRequest applies an action button to a slot.
type QuickLogRequest struct {
	UID              string `json:"uid" validate:"required"`
	NotificationType string `json:"notification_type" validate:"omitempty,notifkind"`
	SlotLabel        string `json:"slot_label" validate:"required"`
	Action           string `json:"action" validate:"required"`
	Date             string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SendTestRequest pushes one template outside the state machine.
type SendTestRequest struct {
	UID              string `json:"uid" validate:"required"`
	NotificationType string `json:"notification_type" validate:"required,notifkind"`
}

// StatusQuery is the query string of the status listing.
type StatusQuery struct {
	UID  string `json:"uid" validate:"required"`
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// bind decodes the JSON body into dst and validates it.
func (s *Server) bind(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return ValidationError{"body": fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return s.validator.Validate(dst)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	ok(w, "ok", map[string]string{"status": "ok"})
}

func (s *Server) registerToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req RegisterTokenRequest
	if err := s.bind(r, &req); err != nil {
		fail(w, err)
		return
	}
	if err := s.preferences.RegisterToken(r.Context(), req.UID, req.Token); err != nil {
		fail(w, err)
		return
	}
	ok(w, "device token registered", map[string]string{"uid": req.UID})
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := StatusQuery{UID: r.URL.Query().Get("uid")}
	if err := s.validator.Validate(q); err != nil {
		fail(w, err)
		return
	}
	view, err := s.preferences.GetPreferences(r.Context(), q.UID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "preferences", view)
}

func (s *Server) savePreferences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req PreferencesRequest
	if err := s.bind(r, &req); err != nil {
		fail(w, err)
		return
	}
	prefs := user.Preferences{
		Enabled:          boolOr(req.Enabled, true),
		SleepEnabled:     boolOr(req.SleepEnabled, true),
		NutritionEnabled: boolOr(req.NutritionEnabled, true),
		HydrationEnabled: boolOr(req.HydrationEnabled, true),
		Timezone:         req.Timezone,
		Times:            req.Times,
	}
	res, err := s.preferences.SavePreferences(r.Context(), req.UID, prefs)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "preferences saved", res)
}

func (s *Server) ack(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req AckRequest
	if err := s.bind(r, &req); err != nil {
		fail(w, err)
		return
	}
	out, err := s.actions.Dismiss(r.Context(), req.UID, req.SlotLabel, req.Date)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "notification dismissed", out)
}

func (s *Server) quickLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req QuickLogRequest
	if err := s.bind(r, &req); err != nil {
		fail(w, err)
		return
	}
	out, err := s.actions.Handle(r.Context(), app.ActionRequest{
		UserID:    req.UID,
		Kind:      notification.Kind(req.NotificationType),
		SlotLabel: req.SlotLabel,
		Action:    notification.ActionID(req.Action),
		Date:      req.Date,
	})
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, fmt.Sprintf("action %s applied", out.Class), out)
}

func (s *Server) sendTest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req SendTestRequest
	if err := s.bind(r, &req); err != nil {
		fail(w, err)
		return
	}
	id, err := s.status.SendTest(r.Context(), req.UID, notification.Kind(req.NotificationType))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "test notification sent", map[string]string{"message_id": id})
}

// stateView is the wire shape of one slot record.
type stateView struct {
	SlotLabel    string  `json:"slot_label"`
	Kind         string  `json:"notification_type"`
	ScheduledAt  string  `json:"scheduled_at"`
	Status       string  `json:"status"`
	SentAt       *string `json:"sent_at,omitempty"`
	Reminded15At *string `json:"reminded_15_at,omitempty"`
	Reminded30At *string `json:"reminded_30_at,omitempty"`
	ResolvedAt   *string `json:"resolved_at,omitempty"`
	ActionTaken  *string `json:"action_taken,omitempty"`
}

func (s *Server) listStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := StatusQuery{UID: r.URL.Query().Get("uid"), Date: r.URL.Query().Get("date")}
	if err := s.validator.Validate(q); err != nil {
		fail(w, err)
		return
	}
	states, err := s.status.ListStates(r.Context(), q.UID, q.Date)
	if err != nil {
		fail(w, err)
		return
	}
	views := make([]stateView, 0, len(states))
	for _, st := range states {
		views = append(views, toStateView(st))
	}
	ok(w, "notification states", views)
}

func (s *Server) seed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, err := s.jobs.RunSeed(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "seed completed", res)
}

func (s *Server) cycle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := s.jobs.RunCycle(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "cycle completed", stats)
}

func toStateView(st *notification.State) stateView {
	v := stateView{
		SlotLabel:    st.SlotLabel,
		Kind:         string(st.Kind),
		ScheduledAt:  st.ScheduledAt.UTC().Format(time.RFC3339),
		Status:       string(st.Status),
		SentAt:       stamp(st.SentAt),
		Reminded15At: stamp(st.Reminded15At),
		Reminded30At: stamp(st.Reminded30At),
		ResolvedAt:   stamp(st.ResolvedAt),
	}
	if st.ActionTaken.Valid {
		a := st.ActionTaken.String
		v.ActionTaken = &a
	}
	return v
}

func stamp(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.UTC().Format(time.RFC3339)
	return &s
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
