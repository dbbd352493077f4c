package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"health_notification_service/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterAdminHandlers registers the operator escape hatches: manual seed,
// manual cycle and a per-user status listing.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, jobs *app.Jobs, status *app.StatusService, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/seed", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/seed",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}

		var date string
		if args := c.Args(); len(args) > 0 {
			date = args[0]
		}
		res, err := jobs.RunSeed(ctx, date)
		if err != nil {
			return c.Send(jobErrorText(handlerLogger, err))
		}
		return c.Send(fmt.Sprintf("Seeded %s: %d users, %d slots (%d new, %d failed).",
			res.Date, res.Users, res.Upserted, res.Inserted, res.Failed))
	})

	b.Handle("/cycle", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/cycle",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}

		stats, err := jobs.RunCycle(ctx)
		if err != nil {
			return c.Send(jobErrorText(handlerLogger, err))
		}
		return c.Send(fmt.Sprintf("Cycle done: sent %d, reminded_15 %d, reminded_30 %d, expired %d, skipped %d, failed %d, conflicts %d.",
			stats.Sent, stats.Reminded15, stats.Reminded30, stats.Expired, stats.Skipped, stats.Failed, stats.Conflicts))
	})

	b.Handle("/status", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/status",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}

		args := c.Args()
		// Expected format: /status <user id> [YYYY-MM-DD]
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Invalid format. Use: /status <user id> [YYYY-MM-DD]")
		}
		var date string
		if len(args) == 2 {
			date = args[1]
		}

		states, err := status.ListStates(ctx, args[0], date)
		if err != nil {
			if errors.Is(err, app.ErrInvalidDate) {
				return c.Send("Error: date must be YYYY-MM-DD.")
			}
			handlerLogger.WithError(err).Error("Failed to list slot states")
			return c.Send(fmt.Sprintf("Failed to list slots: %s", err.Error()))
		}
		if len(states) == 0 {
			return c.Send("No slots found.")
		}

		var response strings.Builder
		for _, st := range states {
			response.WriteString(fmt.Sprintf("%s %s %s", st.ScheduledAt.Format("15:04"), st.SlotLabel, st.Status))
			if st.ActionTaken.Valid {
				response.WriteString(" (" + st.ActionTaken.String + ")")
			}
			response.WriteString("\n")
		}
		return c.Send(response.String())
	})
}

func jobErrorText(logger *logrus.Entry, err error) string {
	switch {
	case errors.Is(err, app.ErrJobBusy):
		logger.WithError(err).Warn("Job already running")
		return "That job is already running elsewhere; try again shortly."
	case errors.Is(err, app.ErrInvalidDate):
		return "Error: date must be YYYY-MM-DD."
	}
	logger.WithError(err).Error("Job failed")
	return fmt.Sprintf("Job failed: %s", err.Error())
}
