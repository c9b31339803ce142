// Package records keeps the patient's previous bookings and their
// acknowledgement status.
package records

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/portal"
)

type API interface {
	HealthRecords(ctx context.Context, aadhaar string) ([]portal.HealthRecord, error)
	Acknowledge(ctx context.Context, id, action string) (portal.HealthRecord, error)
}

// Entry is a record as displayed, with the action in flight if any.
type Entry struct {
	portal.HealthRecord
	Pending string
}

type Option func(*Board)

func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *Board) { b.log = l }
}

// Board is the list of bookings for one patient. Acknowledgements are shown
// optimistically and then reconciled with a full re-fetch.
type Board struct {
	api     API
	aadhaar string
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	records   []portal.HealthRecord
	pending   map[string]string
	errMsg    string
	refreshed time.Time
}

func NewBoard(api API, aadhaar string, opts ...Option) (*Board, error) {
	if strings.TrimSpace(aadhaar) == "" {
		return nil, internaltypes.Invalid("Aadhaar number not found. Please log in again.")
	}
	b := &Board{
		api:     api,
		aadhaar: aadhaar,
		log:     zerolog.Nop(),
		now:     time.Now,
		pending: map[string]string{},
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Refresh replaces the list with the server's. On failure the list is
// emptied and the error kept for display.
func (b *Board) Refresh(ctx context.Context) error {
	recs, err := b.api.HealthRecords(ctx, b.aadhaar)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.records = nil
		b.errMsg = err.Error()
		return err
	}
	b.records = recs
	b.errMsg = ""
	b.refreshed = b.now()
	return nil
}

func (b *Board) Records() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, 0, len(b.records))
	for _, r := range b.records {
		out = append(out, Entry{HealthRecord: r, Pending: b.pending[r.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SlipDate > out[j].SlipDate })
	return out
}

// Err is the message from the last failed refresh or acknowledgement.
func (b *Board) Err() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

func (b *Board) RefreshedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshed
}

func statusFor(action string) (string, bool) {
	switch action {
	case portal.ActionConfirm:
		return portal.AckConfirmed, true
	case portal.ActionCancel:
		return portal.AckCancelled, true
	}
	return "", false
}

// Acknowledge confirms or cancels an upcoming booking. The new status is
// applied locally first; the list is re-fetched afterwards whether or not
// the server accepted it.
func (b *Board) Acknowledge(ctx context.Context, id, action string) error {
	status, ok := statusFor(action)
	if !ok {
		return internaltypes.Invalid(fmt.Sprintf("unknown action %q (want confirm or cancel)", action))
	}

	b.mu.Lock()
	if _, busy := b.pending[id]; busy {
		b.mu.Unlock()
		return internaltypes.Invalid("This booking is already being updated.")
	}
	idx := -1
	for i := range b.records {
		if b.records[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return fmt.Errorf("booking %s: %w", id, internaltypes.ErrNotFound)
	}
	if !CanAcknowledge(b.records[idx], b.now()) {
		b.mu.Unlock()
		return internaltypes.Invalid("Only upcoming bookings awaiting confirmation can be updated.")
	}
	b.pending[id] = action
	b.records[idx].Acknowledgement = status
	b.records[idx].UpdatedAt = b.now().UTC().Format(time.RFC3339)
	b.errMsg = ""
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	_, err := b.api.Acknowledge(ctx, id, action)
	if err != nil {
		b.log.Warn().Err(err).Str("record_id", id).Str("action", action).Msg("acknowledgement failed, reconciling")
		if rerr := b.Refresh(ctx); rerr != nil {
			b.log.Warn().Err(rerr).Msg("reconcile refresh failed")
		}
		b.mu.Lock()
		b.errMsg = err.Error()
		b.mu.Unlock()
		return err
	}
	return b.Refresh(ctx)
}

// Poll refreshes on every tick until ctx ends. Failures are kept for display
// and do not stop polling.
func (b *Board) Poll(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := b.Refresh(ctx); err != nil && ctx.Err() == nil {
				b.log.Debug().Err(err).Msg("bookings refresh failed")
			}
		}
	}
}
