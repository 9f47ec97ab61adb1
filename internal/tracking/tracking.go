package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/runpod/poddy-sub000/internal/utils"
)

type Store interface {
	Create(ctx context.Context, m models.Mappable) error
}

// Tracker captures unexpected failures. Every capture returns the correlation
// ID of its report at once so users can quote it to support; the report is
// stored in the background.
type Tracker struct {
	l  *slog.Logger
	d  Store
	wg sync.WaitGroup
}

// NewTracker returns a tracker that logs every capture and stores it when d
// is non-nil.
func NewTracker(l *slog.Logger, d Store) *Tracker {
	return &Tracker{l: l, d: d}
}

// Wait blocks until every pending report has been stored or dropped.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) CaptureWithExtras(ctx context.Context, err error, extras map[string]any) string {
	return t.capture(ctx, err, extras)
}

// CaptureWithInteraction attaches the raw interaction and the handler name it
// was routed to.
func (t *Tracker) CaptureWithInteraction(ctx context.Context, err error, i *dg.Interaction, handler string) string {
	extras := map[string]any{"handler": handler}
	if i != nil {
		raw, merr := json.Marshal(i)
		if merr == nil {
			extras["interaction"] = json.RawMessage(raw)
		}
		extras["interaction_id"] = i.ID
		extras["guild_id"] = i.GuildID
		extras["channel_id"] = i.ChannelID
		if u := interactionUser(i); u != nil {
			extras["user_id"] = u.ID
		}
	}
	return t.capture(ctx, err, extras)
}

func (t *Tracker) capture(ctx context.Context, err error, extras map[string]any) string {
	report := models.ErrorReport{
		ID:      utils.GenerateID(),
		Error:   err.Error(),
		Stack:   string(debug.Stack()),
		Extras:  extras,
		Created: time.Now().UTC(),
	}

	t.l.Error("captured error", "correlation_id", report.ID, "error", err, "extras", extras)

	if t.d != nil {
		// The report outlives the caller's context.
		sctx := context.WithoutCancel(ctx)

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()

			sctx, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()

			if serr := t.d.Create(sctx, report); serr != nil {
				t.l.Error("error storing error report", "correlation_id", report.ID, "error", serr)
			}
		}()
	}

	return report.ID
}

func interactionUser(i *dg.Interaction) *dg.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
