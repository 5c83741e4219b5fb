// Package handler orchestrates the processing of inbound mail events:
// fetch the raw e-mail, extract reply text and date, submit to the
// nutrition API and send back a calorie summary.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/mealpost/foodlog-responder/internal/config"
	"github.com/mealpost/foodlog-responder/internal/event"
	"github.com/mealpost/foodlog-responder/internal/mailparse"
	"github.com/mealpost/foodlog-responder/internal/nutrition"
	"github.com/mealpost/foodlog-responder/internal/reply"
	"github.com/mealpost/foodlog-responder/internal/replytext"
	"github.com/mealpost/foodlog-responder/internal/sender"
	"github.com/mealpost/foodlog-responder/internal/subjectdate"
)

// RawEmailStore fetches the raw e-mail blob stored for a message ID.
type RawEmailStore interface {
	RawEmail(ctx context.Context, messageID string) ([]byte, error)
}

// NutritionAPI parses natural-language food descriptions, optionally
// logging them durably.
type NutritionAPI interface {
	Nutrients(ctx context.Context, query string) (*nutrition.Response, error)
	LogFood(ctx context.Context, query, userEmail string) (*nutrition.Response, error)
}

// Handler processes inbound mail events end to end. It holds only
// read-only configuration and collaborator handles, so a single Handler
// is safe to reuse across invocations.
type Handler struct {
	cfg    *config.Config
	store  RawEmailStore
	api    NutritionAPI
	sender sender.Sender

	// now is replaceable for deterministic tests.
	now func() time.Time
}

// New creates a Handler with the given collaborators.
func New(cfg *config.Config, store RawEmailStore, api NutritionAPI, snd sender.Sender) *Handler {
	return &Handler{
		cfg:    cfg,
		store:  store,
		api:    api,
		sender: snd,
		now:    time.Now,
	}
}

// Handle processes one inbound event. Records are processed strictly in
// order, each end to end before the next; a failing record is logged and
// reported without aborting its siblings. The returned error aggregates
// all per-record failures.
func (h *Handler) Handle(ctx context.Context, e events.SimpleEmailEvent) error {
	records := event.InboundRecords(e)
	if len(records) == 0 {
		slog.Info("no inbound mail records in event", "total_records", len(e.Records))
		return nil
	}

	var errs []error
	for _, r := range records {
		log := slog.With(
			"trace_id", uuid.New().String(),
			"message_id", r.SES.Mail.MessageID,
		)

		if err := h.processRecord(ctx, r, log); err != nil {
			log.Error("record processing failed", "error", err)
			errs = append(errs, fmt.Errorf("record %s: %w", r.SES.Mail.MessageID, err))
			continue
		}
		log.Info("reply sent")
	}

	return errors.Join(errs...)
}

// processRecord runs the pipeline for a single record. Every stage fails
// closed: no reply goes out unless all prior stages succeeded.
func (h *Handler) processRecord(ctx context.Context, r events.SimpleEmailRecord, log *slog.Logger) error {
	n, err := event.FromRecord(r)
	if err != nil {
		return err
	}
	// Log mode attributes the entry to the sender, so it cannot proceed
	// without a return path. Parse mode never uses it.
	if h.cfg.LogModeEnabled() && n.ReturnPath == "" {
		return fmt.Errorf("%w: missing returnPath", event.ErrMalformedEvent)
	}

	date, err := subjectdate.Extract(n.Subject, h.now())
	if err != nil {
		return fmt.Errorf("subject %q: %w", n.Subject, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, h.timeout(h.cfg.Storage.TimeoutSeconds))
	defer cancel()
	raw, err := h.store.RawEmail(fetchCtx, n.MessageID)
	if err != nil {
		return fmt.Errorf("failed to fetch raw e-mail: %w", err)
	}

	env, err := mailparse.Parse(raw)
	if err != nil {
		return err
	}

	text := replytext.Extract(env.TextBody, h.cfg.Mail.UserName, h.cfg.Mail.UserAddress)
	if text == "" {
		return fmt.Errorf("no reply text left in message body")
	}

	// The long date disambiguates which day the entry is for; the
	// subject carries it, the body usually does not.
	query := text + " on " + date.Long()
	log.Debug("submitting food query", "query", query)

	apiCtx, cancel := context.WithTimeout(ctx, h.timeout(h.cfg.Nutrition.TimeoutSeconds))
	defer cancel()

	var resp *nutrition.Response
	if h.cfg.LogModeEnabled() {
		resp, err = h.api.LogFood(apiCtx, query, n.ReturnPath)
	} else {
		resp, err = h.api.Nutrients(apiCtx, query)
	}
	if err != nil {
		return err
	}

	calories := strconv.FormatFloat(resp.TotalCalories(), 'f', -1, 64)
	log.Info("logged food entry",
		"calories", calories,
		"foods", len(resp.Foods),
		"date", date.Short(),
	)

	rawReply, err := reply.Build(raw, reply.Options{
		TextBody: replyBody(calories, date),
		FromName: h.cfg.Mail.FromName,
		FromAddr: h.cfg.Mail.FromAddress,
	})
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.timeout(h.cfg.SES.TimeoutSeconds))
	defer cancel()
	if err := h.sender.SendRaw(sendCtx, rawReply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	return nil
}

// replyBody renders the calorie summary sent back to the user. The short
// date doubles as the dashboard URL path segment.
func replyBody(calories string, date subjectdate.Date) string {
	return fmt.Sprintf(
		"Thanks! I just logged %s calories to your food log for %s.\n"+
			"You can view them on your dashboard here: https://www.nutritionix.com/dashboard/%s\n",
		calories, date.Long(), date.Short(),
	)
}

// timeout converts a configured timeout in seconds to a duration,
// defaulting to 20s if unset.
func (h *Handler) timeout(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 20
	}
	return time.Duration(seconds) * time.Second
}
