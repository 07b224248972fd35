package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/inspiredanalyst/submanager-server/internal/lifecycle"
	"github.com/inspiredanalyst/submanager-server/internal/models"
)

// Store is the in-memory record collection for the currently active sheet.
// It is the source of truth for rendering: every mutation is visible
// synchronously, and no method here performs network I/O. Mutations either
// fully apply or leave the collection untouched.
type Store struct {
	mu      sync.Mutex
	sheet   string
	records []models.Record
}

// New creates an empty store with no active sheet.
func New() *Store {
	return &Store{}
}

// ActiveSheet returns the name of the sheet the store currently holds.
func (s *Store) ActiveSheet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet
}

// SetActiveSheet switches the store to a different sheet, replacing its
// contents with the given seed records.
func (s *Store) SetActiveSheet(name string, records []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheet = name
	s.records = cloneRecords(records)
}

// Add appends a record, assigning an id if it has none, and returns the
// stored record.
func (s *Store) Add(rec models.Record) models.Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return rec
}

// Remove deletes the record with the given id. It reports whether a record
// was found.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// Renew advances a record's end date by the given number of calendar
// months, clamping to the end of the target month. Records without a
// parseable end date are left unchanged (renewed=false with found=true).
func (s *Store) Renew(id string, months int) (rec models.Record, found, renewed bool) {
	if months <= 0 {
		months = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		r := s.records[i]
		end, ok := lifecycle.ParseDate(r.EndDate())
		if !ok {
			return r, true, false
		}
		fields := *r.Default
		fields.EndDate = lifecycle.FormatDate(lifecycle.AddMonths(end, months))
		r.Default = &fields
		s.records[i] = r
		return r, true, true
	}
	return models.Record{}, false, false
}

// ReplaceAll overwrites the collection wholesale.
func (s *Store) ReplaceAll(records []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cloneRecords(records)
}

// ApplyFetch replaces the collection with a fetched copy, but only when
// the response still belongs to the active sheet. A slow fetch for a
// previously viewed sheet is discarded so it cannot clobber the current
// one. Reports whether the fetch was applied.
func (s *Store) ApplyFetch(sheet string, records []models.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sheet != s.sheet {
		return false
	}
	s.records = cloneRecords(records)
	return true
}

// Snapshot returns a copy of the current collection.
func (s *Store) Snapshot() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records)
}

func cloneRecords(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	return out
}
