package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inspiredanalyst/submanager-server/internal/models"
	"github.com/inspiredanalyst/submanager-server/internal/store"
	"github.com/inspiredanalyst/submanager-server/internal/sync"
	"github.com/inspiredanalyst/submanager-server/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend lets each test script the backend's behavior per call.
type fakeBackend struct {
	fetchNames   func() ([]string, error)
	fetchRecords func(sheetName string) ([]models.Record, error)
	pushRecords  func(sheetName string, records []models.Record) error
	pushed       [][]models.Record
}

func (f *fakeBackend) FetchSheetNames(ctx context.Context) ([]string, error) {
	if f.fetchNames == nil {
		return nil, nil
	}
	return f.fetchNames()
}

func (f *fakeBackend) FetchRecords(ctx context.Context, sheetName string, schema models.Schema) ([]models.Record, error) {
	if f.fetchRecords == nil {
		return nil, nil
	}
	return f.fetchRecords(sheetName)
}

func (f *fakeBackend) PushRecords(ctx context.Context, sheetName string, records []models.Record, schema models.Schema) error {
	if f.pushRecords == nil {
		f.pushed = append(f.pushed, records)
		return nil
	}
	return f.pushRecords(sheetName, records)
}

func defaultResolver(ctx context.Context, sheetName string) (models.Schema, error) {
	return models.DefaultSchema(), nil
}

func newEngine(backend sync.Backend, st *store.Store) *sync.Engine {
	return sync.NewEngine(backend, st, defaultResolver, utils.NewLogger(), time.Minute, sync.ModeRemote)
}

func record(id string) models.Record {
	return models.Record{ID: id, Default: &models.DefaultFields{Username: "alice", Plan: models.TierPremium, Amount: 20}}
}

func TestRefreshReplacesActiveSheet(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", []models.Record{record("old")})

	backend := &fakeBackend{
		fetchRecords: func(sheetName string) ([]models.Record, error) {
			return []models.Record{record("fresh-1"), record("fresh-2")}, nil
		},
	}
	engine := newEngine(backend, st)

	require.NoError(t, engine.Refresh(context.Background(), "Dec 2025"))

	snapshot := st.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, "fresh-1", snapshot[0].ID)

	status := engine.Status()
	assert.True(t, status.Connected)
	assert.False(t, status.LastSyncedAt.IsZero())
}

func TestRefreshFailureKeepsLocalRecords(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", []models.Record{record("local-1")})

	backend := &fakeBackend{
		fetchRecords: func(sheetName string) ([]models.Record, error) {
			return nil, errors.New("connection refused")
		},
	}
	engine := newEngine(backend, st)

	err := engine.Refresh(context.Background(), "Dec 2025")

	require.Error(t, err)
	assert.ErrorIs(t, err, sync.ErrUnavailable)
	assert.Equal(t, "local-1", st.Snapshot()[0].ID, "stale records stay visible")
	assert.False(t, engine.Status().Connected)
}

func TestRefreshForInactiveSheetIsDiscarded(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", []models.Record{record("current")})

	backend := &fakeBackend{
		fetchRecords: func(sheetName string) ([]models.Record, error) {
			// Simulate the operator switching sheets mid-fetch.
			st.SetActiveSheet("Jan 2026", nil)
			return []models.Record{record("late")}, nil
		},
	}
	engine := newEngine(backend, st)

	require.NoError(t, engine.Refresh(context.Background(), "Dec 2025"))
	assert.Empty(t, st.Snapshot(), "late response for an inactive sheet is dropped")
}

func TestPushFailureKeepsOptimisticState(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", nil)
	st.Add(record("rec-1"))

	backend := &fakeBackend{
		pushRecords: func(sheetName string, records []models.Record) error {
			return errors.New("503 service unavailable")
		},
	}
	engine := newEngine(backend, st)

	err := engine.Push(context.Background(), "Dec 2025", st.Snapshot())

	require.Error(t, err)
	assert.ErrorIs(t, err, sync.ErrUnavailable)
	assert.Len(t, st.Snapshot(), 1, "local edit survives the failed push")
	assert.False(t, engine.Status().Connected)
}

func TestPushSuccessRestoresConnectivity(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", nil)

	backend := &fakeBackend{
		fetchRecords: func(sheetName string) ([]models.Record, error) {
			return nil, errors.New("down")
		},
	}
	engine := newEngine(backend, st)

	_ = engine.Refresh(context.Background(), "Dec 2025")
	assert.False(t, engine.Status().Connected)

	require.NoError(t, engine.Push(context.Background(), "Dec 2025", []models.Record{record("rec-1")}))
	assert.True(t, engine.Status().Connected)
	require.Len(t, backend.pushed, 1)
	assert.Equal(t, "rec-1", backend.pushed[0][0].ID)
}

func TestSheetNamesUnion(t *testing.T) {
	st := store.New()
	backend := &fakeBackend{
		fetchNames: func() ([]string, error) {
			return []string{"B", "C"}, nil
		},
	}
	engine := newEngine(backend, st)

	merged := engine.SheetNames(context.Background(), []string{"A", "B"})
	assert.Equal(t, []string{"A", "B", "C"}, merged, "local order first, remote extras appended")
}

func TestSheetNamesFallsBackToLocalOnFailure(t *testing.T) {
	st := store.New()
	backend := &fakeBackend{
		fetchNames: func() ([]string, error) {
			return nil, errors.New("timeout")
		},
	}
	engine := newEngine(backend, st)

	merged := engine.SheetNames(context.Background(), []string{"A", "B"})
	assert.Equal(t, []string{"A", "B"}, merged)
	assert.False(t, engine.Status().Connected)
}

func TestStatusReportsModeAndActiveSheet(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", nil)
	engine := sync.NewEngine(&fakeBackend{}, st, defaultResolver, utils.NewLogger(), time.Minute, sync.ModeLocal)

	status := engine.Status()
	assert.Equal(t, sync.ModeLocal, status.Mode)
	assert.Equal(t, "Dec 2025", status.ActiveSheet)
	assert.False(t, status.Connected)
	assert.True(t, status.LastSyncedAt.IsZero())
}

func TestBackgroundRefreshAppliesOnTick(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", nil)

	fetched := make(chan struct{}, 1)
	backend := &fakeBackend{
		fetchRecords: func(sheetName string) ([]models.Record, error) {
			select {
			case fetched <- struct{}{}:
			default:
			}
			return []models.Record{record("ticked")}, nil
		},
	}
	engine := sync.NewEngine(backend, st, defaultResolver, utils.NewLogger(), 10*time.Millisecond, sync.ModeRemote)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never fired")
	}

	assert.Eventually(t, func() bool {
		snapshot := st.Snapshot()
		return len(snapshot) == 1 && snapshot[0].ID == "ticked"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResolverFailureSurfacesBeforeFetch(t *testing.T) {
	st := store.New()
	st.SetActiveSheet("Dec 2025", nil)

	resolver := func(ctx context.Context, sheetName string) (models.Schema, error) {
		return models.Schema{}, errors.New("descriptor lookup failed")
	}
	backend := &fakeBackend{
		fetchRecords: func(sheetName string) ([]models.Record, error) {
			t.Fatal("fetch must not run when the schema cannot be resolved")
			return nil, nil
		},
	}
	engine := sync.NewEngine(backend, st, resolver, utils.NewLogger(), time.Minute, sync.ModeRemote)

	err := engine.Refresh(context.Background(), "Dec 2025")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sync.ErrUnavailable)
}
