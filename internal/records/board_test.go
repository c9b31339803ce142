package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/portal"
)

var fixedNow = time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// recordServer is an in-memory /api/health-records backend.
type recordServer struct {
	mu       sync.Mutex
	records  map[string]*portal.HealthRecord
	order    []string
	fetches  atomic.Int32
	reject   bool
	hold     chan struct{}
	patching chan struct{}
}

func newRecordServer(t *testing.T, recs ...portal.HealthRecord) (*recordServer, *portal.Client) {
	t.Helper()
	rs := &recordServer{records: map[string]*portal.HealthRecord{}}
	for i := range recs {
		r := recs[i]
		rs.records[r.ID] = &r
		rs.order = append(rs.order, r.ID)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health-records/{aadhaar}", func(w http.ResponseWriter, r *http.Request) {
		rs.fetches.Add(1)
		rs.mu.Lock()
		defer rs.mu.Unlock()
		out := []portal.HealthRecord{}
		for _, id := range rs.order {
			if rec := rs.records[id]; rec.Aadhaar == r.PathValue("aadhaar") {
				out = append(out, *rec)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": out})
	})
	mux.HandleFunc("PATCH /api/health-records/acknowledge/{id}", func(w http.ResponseWriter, r *http.Request) {
		if rs.patching != nil {
			close(rs.patching)
		}
		if rs.hold != nil {
			<-rs.hold
		}
		var body struct {
			Action string `json:"action"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if rs.reject {
			writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Booking can no longer be changed"})
			return
		}
		rs.mu.Lock()
		defer rs.mu.Unlock()
		rec := rs.records[r.PathValue("id")]
		if body.Action == portal.ActionConfirm {
			rec.Acknowledgement = portal.AckConfirmed
		} else {
			rec.Acknowledgement = portal.AckCancelled
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return rs, portal.New(srv.URL)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func upcoming(id string) portal.HealthRecord {
	return portal.HealthRecord{ID: id, Aadhaar: "123456789012", Symptoms: "fever", Department: "General Medicine",
		SlipDate: "2025-03-12", SlotTime: "09:00", Acknowledgement: portal.AckPending}
}

func newBoard(t *testing.T, api API) *Board {
	t.Helper()
	b, err := NewBoard(api, "123456789012", WithClock(clock))
	require.NoError(t, err)
	return b
}

func TestNewBoardRequiresAadhaar(t *testing.T) {
	_, err := NewBoard(nil, " ")
	var verr *internaltypes.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Aadhaar number not found. Please log in again.", verr.Msg)
}

func TestRefreshSortsNewestFirst(t *testing.T) {
	older := upcoming("r1")
	older.SlipDate = "2025-03-01"
	_, client := newRecordServer(t, older, upcoming("r2"))
	b := newBoard(t, client)

	require.NoError(t, b.Refresh(context.Background()))
	recs := b.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "r2", recs[0].ID)
	assert.Equal(t, fixedNow, b.RefreshedAt())
	assert.Empty(t, b.Err())
}

func TestRefreshFailureEmptiesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
	}))
	defer srv.Close()
	b := newBoard(t, portal.New(srv.URL))

	err := b.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, "No bookings found", b.Err())
	assert.Empty(t, b.Records())
}

func TestAcknowledgeIsOptimisticThenReconciled(t *testing.T) {
	rs, client := newRecordServer(t, upcoming("r1"))
	rs.hold = make(chan struct{})
	rs.patching = make(chan struct{})
	b := newBoard(t, client)
	require.NoError(t, b.Refresh(context.Background()))

	errc := make(chan error, 1)
	go func() { errc <- b.Acknowledge(context.Background(), "r1", portal.ActionConfirm) }()
	<-rs.patching

	recs := b.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, portal.AckConfirmed, recs[0].Acknowledgement)
	assert.Equal(t, portal.ActionConfirm, recs[0].Pending)
	assert.NotEmpty(t, recs[0].UpdatedAt)

	var verr *internaltypes.ValidationError
	assert.ErrorAs(t, b.Acknowledge(context.Background(), "r1", portal.ActionCancel), &verr)

	close(rs.hold)
	require.NoError(t, <-errc)
	recs = b.Records()
	assert.Equal(t, portal.AckConfirmed, recs[0].Acknowledgement)
	assert.Empty(t, recs[0].Pending)
	assert.Equal(t, int32(2), rs.fetches.Load())
}

func TestAcknowledgeFailureRevertsToServerState(t *testing.T) {
	rs, client := newRecordServer(t, upcoming("r1"))
	rs.reject = true
	b := newBoard(t, client)
	require.NoError(t, b.Refresh(context.Background()))

	err := b.Acknowledge(context.Background(), "r1", portal.ActionCancel)
	require.Error(t, err)
	assert.Equal(t, "Booking can no longer be changed", err.Error())
	assert.Equal(t, "Booking can no longer be changed", b.Err())

	recs := b.Records()
	assert.Equal(t, portal.AckPending, recs[0].Acknowledgement)
	assert.Empty(t, recs[0].Pending)
	assert.Equal(t, int32(2), rs.fetches.Load())
}

func TestAcknowledgeRejectsInvalidRequests(t *testing.T) {
	past := upcoming("old")
	past.SlipDate = "2025-03-01"
	done := upcoming("done")
	done.Acknowledgement = portal.AckConfirmed
	_, client := newRecordServer(t, upcoming("r1"), past, done)
	b := newBoard(t, client)
	require.NoError(t, b.Refresh(context.Background()))

	var verr *internaltypes.ValidationError
	assert.ErrorAs(t, b.Acknowledge(context.Background(), "r1", "maybe"), &verr)
	assert.ErrorAs(t, b.Acknowledge(context.Background(), "old", portal.ActionConfirm), &verr)
	assert.ErrorAs(t, b.Acknowledge(context.Background(), "done", portal.ActionCancel), &verr)
	assert.ErrorIs(t, b.Acknowledge(context.Background(), "missing", portal.ActionConfirm), internaltypes.ErrNotFound)
}

func TestPollRefreshesUntilCancelled(t *testing.T) {
	rs, client := newRecordServer(t, upcoming("r1"))
	b := newBoard(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Poll(ctx, 5*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool { return rs.fetches.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Len(t, b.Records(), 1)
}
