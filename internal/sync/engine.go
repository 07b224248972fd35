package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inspiredanalyst/submanager-server/internal/models"
	"github.com/inspiredanalyst/submanager-server/internal/store"
	"github.com/inspiredanalyst/submanager-server/internal/utils"
)

// Engine modes
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// ErrUnavailable marks connectivity failures against the backend. Callers
// surface it as a degraded-sync notice; the local state is never rolled
// back because of it.
var ErrUnavailable = errors.New("sync backend unavailable")

// Backend is the durable side of the sync loop: the remote collaborator,
// or the repository when running local-only.
type Backend interface {
	FetchSheetNames(ctx context.Context) ([]string, error)
	FetchRecords(ctx context.Context, sheetName string, schema models.Schema) ([]models.Record, error)
	PushRecords(ctx context.Context, sheetName string, records []models.Record, schema models.Schema) error
}

// SchemaResolver looks up the schema descriptor for a sheet name.
type SchemaResolver func(ctx context.Context, sheetName string) (models.Schema, error)

// Engine reconciles the record store with the backend: fetch on
// load/interval/manual refresh, push after every local mutation. Local
// edits apply before the push (optimistic), and a per-sheet single-slot
// gate keeps a pending push ahead of the next fetch for the same sheet.
type Engine struct {
	backend  Backend
	store    *store.Store
	resolve  SchemaResolver
	logger   *utils.Logger
	interval time.Duration
	mode     string

	mu         sync.Mutex
	connected  bool
	lastSynced time.Time
	gates      map[string]chan struct{}
}

// Status is a point-in-time connectivity report.
type Status struct {
	Mode         string
	Connected    bool
	LastSyncedAt time.Time
	ActiveSheet  string
}

// NewEngine creates a sync engine over the given backend.
func NewEngine(backend Backend, st *store.Store, resolve SchemaResolver, logger *utils.Logger, interval time.Duration, mode string) *Engine {
	return &Engine{
		backend:  backend,
		store:    st,
		resolve:  resolve,
		logger:   logger,
		interval: interval,
		mode:     mode,
		gates:    make(map[string]chan struct{}),
	}
}

// Start runs the periodic background refresh of the active sheet until the
// context is cancelled. Background refreshes are silent: failures degrade
// the connectivity state but never surface an error to the operator.
func (e *Engine) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.backgroundRefresh(ctx)
			}
		}
	}()
}

// Refresh performs a user-triggered fetch of a sheet, waiting for any
// in-flight operation on that sheet to finish first.
func (e *Engine) Refresh(ctx context.Context, sheetName string) error {
	if err := e.acquire(ctx, sheetName); err != nil {
		return err
	}
	defer e.release(sheetName)

	return e.refreshLocked(ctx, sheetName)
}

// Push sends the full record collection for a sheet to the backend. The
// caller has already applied the mutation locally; on failure the engine
// marks connectivity degraded and returns an error wrapping
// ErrUnavailable, and the optimistic local state stands.
func (e *Engine) Push(ctx context.Context, sheetName string, records []models.Record) error {
	schema, err := e.resolve(ctx, sheetName)
	if err != nil {
		return fmt.Errorf("error resolving schema for sheet %q: %w", sheetName, err)
	}

	if err := e.acquire(ctx, sheetName); err != nil {
		return err
	}
	defer e.release(sheetName)

	if err := e.backend.PushRecords(ctx, sheetName, records, schema); err != nil {
		e.markDegraded()
		return fmt.Errorf("%w: pushing sheet %q: %v", ErrUnavailable, sheetName, err)
	}

	e.markHealthy()
	return nil
}

// SheetNames merges the backend's sheet list into the locally known one.
// Local-only names created but not yet round-tripped are never lost: the
// merge is a union, not a replace. On backend failure the local list is
// returned as-is.
func (e *Engine) SheetNames(ctx context.Context, local []string) []string {
	remote, err := e.backend.FetchSheetNames(ctx)
	if err != nil {
		e.markDegraded()
		e.logger.Info("Sheet list fetch failed, using local list: %v", err)
		return local
	}
	e.markHealthy()

	seen := make(map[string]bool, len(local))
	merged := make([]string, 0, len(local)+len(remote))
	for _, name := range local {
		seen[name] = true
		merged = append(merged, name)
	}
	for _, name := range remote {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	return merged
}

// Status reports the current connectivity state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Mode:         e.mode,
		Connected:    e.connected,
		LastSyncedAt: e.lastSynced,
		ActiveSheet:  e.store.ActiveSheet(),
	}
}

func (e *Engine) backgroundRefresh(ctx context.Context) {
	sheetName := e.store.ActiveSheet()
	if sheetName == "" {
		return
	}

	// A user-triggered push or refresh holds the slot; skip this tick
	// rather than queue behind it.
	if !e.tryAcquire(sheetName) {
		return
	}
	defer e.release(sheetName)

	if err := e.refreshLocked(ctx, sheetName); err != nil {
		e.logger.Debug("Background refresh of sheet %q failed: %v", sheetName, err)
	}
}

// refreshLocked fetches a sheet's records and applies them to the store.
// The caller must hold the sheet's gate. A response arriving after the
// active sheet changed is discarded by the store; the existing local
// records stay untouched on any failure.
func (e *Engine) refreshLocked(ctx context.Context, sheetName string) error {
	schema, err := e.resolve(ctx, sheetName)
	if err != nil {
		return fmt.Errorf("error resolving schema for sheet %q: %w", sheetName, err)
	}

	records, err := e.backend.FetchRecords(ctx, sheetName, schema)
	if err != nil {
		e.markDegraded()
		return fmt.Errorf("%w: fetching sheet %q: %v", ErrUnavailable, sheetName, err)
	}

	e.markHealthy()
	e.store.ApplyFetch(sheetName, records)
	return nil
}

func (e *Engine) gate(sheetName string) chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.gates[sheetName]
	if !ok {
		g = make(chan struct{}, 1)
		e.gates[sheetName] = g
	}
	return g
}

func (e *Engine) acquire(ctx context.Context, sheetName string) error {
	select {
	case e.gate(sheetName) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) tryAcquire(sheetName string) bool {
	select {
	case e.gate(sheetName) <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *Engine) release(sheetName string) {
	<-e.gate(sheetName)
}

func (e *Engine) markHealthy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = true
	e.lastSynced = time.Now().UTC()
}

func (e *Engine) markDegraded() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
}
