package swipe_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hospimatch/matching-service/internal/application"
	"hospimatch/matching-service/internal/swipe"
)

// ─── Fakes ───────────────────────────────────────────────────────────────────

type memLedger struct {
	mu      sync.Mutex
	records map[string]*swipe.Record
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]*swipe.Record)}
}

func (m *memLedger) Upsert(_ context.Context, candidateID, jobID string, action swipe.Action, reason *string) (*swipe.Record, swipe.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := candidateID + "|" + jobID
	var prev swipe.Action
	if existing, ok := m.records[key]; ok {
		prev = existing.Action
	}
	rec := &swipe.Record{
		CandidateID: candidateID,
		JobID:       jobID,
		Action:      action,
		Reason:      reason,
		SwipedAt:    time.Now().UTC(),
	}
	m.records[key] = rec
	cp := *rec
	return &cp, prev, nil
}

func (m *memLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memLedger) get(candidateID, jobID string) *swipe.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[candidateID+"|"+jobID]
}

type fakeApps struct {
	mu      sync.Mutex
	created map[string]bool
	calls   int
	err     error
}

func (f *fakeApps) CreateFromSwipe(_ context.Context, candidateID, jobID string) (*application.Application, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	if f.created == nil {
		f.created = make(map[string]bool)
	}
	key := candidateID + "|" + jobID
	if f.created[key] {
		return &application.Application{CandidateID: candidateID, JobID: jobID}, false, nil
	}
	f.created[key] = true
	return &application.Application{CandidateID: candidateID, JobID: jobID, Status: application.StatusUnseen}, true, nil
}

type fakeCounters struct {
	mu    sync.Mutex
	likes map[string]int
	views map[string]int
}

func (f *fakeCounters) IncrementLikes(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likes == nil {
		f.likes = make(map[string]int)
	}
	f.likes[jobID]++
	return nil
}

func (f *fakeCounters) IncrementViews(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.views == nil {
		f.views = make(map[string]int)
	}
	f.views[jobID]++
	return nil
}

func newService() (*swipe.Service, *memLedger, *fakeApps, *fakeCounters) {
	ledger := newMemLedger()
	apps := &fakeApps{}
	counters := &fakeCounters{}
	return swipe.NewService(ledger, apps, counters, zap.NewNop()), ledger, apps, counters
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func TestRecordSwipe_ReSwipeOverwritesSingleRecord(t *testing.T) {
	svc, ledger, _, _ := newService()
	ctx := context.Background()

	_, err := svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionLeft, "too far")
	require.NoError(t, err)

	rec, err := svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionRight, "")
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.count(), "re-swiping must overwrite, never duplicate")
	assert.Equal(t, swipe.ActionRight, rec.Action)
	assert.Nil(t, rec.Reason, "overwrite replaces the previous reason")
	assert.Equal(t, swipe.ActionRight, ledger.get("cand-1", "job-1").Action)
}

func TestRecordSwipe_LeftHasNoSideEffects(t *testing.T) {
	svc, _, apps, counters := newService()

	rec, err := svc.RecordSwipe(context.Background(), "cand-1", "job-1", swipe.ActionLeft, "schedule conflict")
	require.NoError(t, err)

	assert.Equal(t, swipe.ActionLeft, rec.Action)
	require.NotNil(t, rec.Reason)
	assert.Equal(t, "schedule conflict", *rec.Reason)
	assert.Zero(t, apps.calls)
	assert.Empty(t, counters.likes)
}

func TestRecordSwipe_RightCreatesApplicationOnce(t *testing.T) {
	svc, _, apps, counters := newService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionRight, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 3, apps.calls, "every affirmative swipe asks, creation itself is idempotent")
	assert.Len(t, apps.created, 1)
	assert.Empty(t, counters.likes, "right swipes never touch the like counter")
}

func TestRecordSwipe_FavoriteIncrementsLikeOncePerPair(t *testing.T) {
	svc, _, _, counters := newService()
	ctx := context.Background()

	_, err := svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionFavorite, "")
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionFavorite, "")
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionFavorite, "")
	require.NoError(t, err)

	assert.Equal(t, 1, counters.likes["job-1"], "re-favoriting the same pair must not double-count")
}

func TestRecordSwipe_FavoriteAfterOtherActionIncrementsAgain(t *testing.T) {
	svc, _, _, counters := newService()
	ctx := context.Background()

	_, err := svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionFavorite, "")
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionRight, "")
	require.NoError(t, err)
	_, err = svc.RecordSwipe(ctx, "cand-1", "job-1", swipe.ActionFavorite, "")
	require.NoError(t, err)

	// The pair went favorite → right → favorite: the guard keys on the
	// previous action, so this counts twice.
	assert.Equal(t, 2, counters.likes["job-1"])
}

func TestRecordSwipe_DistinctCandidatesEachCount(t *testing.T) {
	svc, _, _, counters := newService()
	ctx := context.Background()

	for _, cand := range []string{"cand-1", "cand-2", "cand-3"} {
		_, err := svc.RecordSwipe(ctx, cand, "job-1", swipe.ActionFavorite, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 3, counters.likes["job-1"])
}

func TestRecordSwipe_FavoriteCreatesApplicationToo(t *testing.T) {
	svc, _, apps, _ := newService()

	_, err := svc.RecordSwipe(context.Background(), "cand-1", "job-1", swipe.ActionFavorite, "")
	require.NoError(t, err)

	assert.Len(t, apps.created, 1)
}

func TestRecordSwipe_UnknownActionRejected(t *testing.T) {
	svc, ledger, _, _ := newService()

	_, err := svc.RecordSwipe(context.Background(), "cand-1", "job-1", swipe.Action("up"), "")
	require.Error(t, err)
	assert.Zero(t, ledger.count())
}

func TestRecordSwipe_ApplicationFailurePropagatesButLedgerStands(t *testing.T) {
	svc, ledger, apps, counters := newService()
	apps.err = application.ErrJobUnavailable

	_, err := svc.RecordSwipe(context.Background(), "cand-1", "job-1", swipe.ActionFavorite, "")

	assert.ErrorIs(t, err, application.ErrJobUnavailable)
	assert.Equal(t, 1, ledger.count(), "the swipe itself is recorded even when the application fails")
	assert.Empty(t, counters.likes, "no like increment when the application side effect failed")
}

func TestRecordJobView(t *testing.T) {
	svc, _, _, counters := newService()

	require.NoError(t, svc.RecordJobView(context.Background(), "job-1"))
	require.NoError(t, svc.RecordJobView(context.Background(), "job-1"))

	assert.Equal(t, 2, counters.views["job-1"])
}
