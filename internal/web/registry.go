package web

import (
	"sync"
	"time"

	"github.com/example/op-booking/internal/booking"
	"github.com/example/op-booking/internal/opslip"
	"github.com/example/op-booking/internal/records"
	"github.com/example/op-booking/internal/session"
)

// browser is the server-side state of one browser: its booking workflow,
// its bookings board and the identity from its cookie, refreshed on every
// request.
type browser struct {
	mu        sync.Mutex
	user      session.User
	loggedIn  bool
	emergency *opslip.Slip
	seen      time.Time

	wf *booking.Workflow

	board      *records.Board
	boardOwner string
}

func (b *browser) User() (session.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user, b.loggedIn
}

func (b *browser) setUser(u session.User, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user, b.loggedIn = u, ok
}

func (b *browser) setEmergency(s opslip.Slip) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emergency = &s
}

func (b *browser) lastEmergency() (opslip.Slip, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emergency == nil {
		return opslip.Slip{}, false
	}
	return *b.emergency, true
}

// bookings returns the board for aadhaar, built on first use and rebuilt
// when a different patient logs in on the same browser.
func (b *browser) bookings(aadhaar string, build func(string) (*records.Board, error)) (*records.Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.board != nil && b.boardOwner == aadhaar {
		return b.board, nil
	}
	board, err := build(aadhaar)
	if err != nil {
		return nil, err
	}
	b.board, b.boardOwner = board, aadhaar
	return board, nil
}

// registry holds one browser per browser id. Idle entries are dropped on
// access once older than ttl.
type registry struct {
	mu    sync.Mutex
	items map[string]*browser
	ttl   time.Duration
	now   func() time.Time
	build func(*browser) *booking.Workflow
}

func newRegistry(ttl time.Duration, now func() time.Time, build func(*browser) *booking.Workflow) *registry {
	return &registry{items: map[string]*browser{}, ttl: ttl, now: now, build: build}
}

func (r *registry) get(id string) *browser {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for k, b := range r.items {
		if k != id && now.Sub(b.seen) > r.ttl {
			delete(r.items, k)
		}
	}
	b, ok := r.items[id]
	if !ok {
		b = &browser{}
		b.wf = r.build(b)
		r.items[id] = b
	}
	b.seen = now
	return b
}

func (r *registry) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
