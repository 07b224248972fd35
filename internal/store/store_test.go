package store_test

import (
	"testing"

	"github.com/inspiredanalyst/submanager-server/internal/models"
	"github.com/inspiredanalyst/submanager-server/internal/store"
	"github.com/stretchr/testify/assert"
)

func defaultRecord(id, endDate string) models.Record {
	return models.Record{
		ID: id,
		Default: &models.DefaultFields{
			Username: "alice",
			Plan:     models.TierPremium,
			Amount:   20,
			EndDate:  endDate,
		},
	}
}

func TestAddAssignsID(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", nil)

	added := s.Add(models.Record{Default: &models.DefaultFields{Username: "alice"}})

	assert.NotEmpty(t, added.ID)
	snapshot := s.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, added.ID, snapshot[0].ID)
}

func TestAddKeepsExistingID(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", nil)

	added := s.Add(defaultRecord("rec-1", ""))
	assert.Equal(t, "rec-1", added.ID)
}

func TestRemove(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", []models.Record{
		defaultRecord("rec-1", "2026-01-01"),
		defaultRecord("rec-2", "2026-02-01"),
	})

	assert.True(t, s.Remove("rec-1"))
	assert.Len(t, s.Snapshot(), 1)
	assert.Equal(t, "rec-2", s.Snapshot()[0].ID)

	assert.False(t, s.Remove("rec-1"), "second delete finds nothing")
	assert.Len(t, s.Snapshot(), 1)
}

func TestRenewAdvancesOneMonth(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", []models.Record{defaultRecord("rec-1", "2025-12-01")})

	rec, found, renewed := s.Renew("rec-1", 1)

	assert.True(t, found)
	assert.True(t, renewed)
	assert.Equal(t, "2026-01-01", rec.Default.EndDate)
	assert.Equal(t, "2026-01-01", s.Snapshot()[0].Default.EndDate)
}

func TestRenewClampsMonthOverflow(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Jan 2025", []models.Record{defaultRecord("rec-1", "2025-01-31")})

	rec, _, renewed := s.Renew("rec-1", 1)

	assert.True(t, renewed)
	assert.Equal(t, "2025-02-28", rec.Default.EndDate)
}

func TestRenewWithoutEndDateIsNoop(t *testing.T) {
	s := store.New()
	custom := models.Record{ID: "rec-1", Custom: map[string]string{"Name": "Bob"}}
	s.SetActiveSheet("Clients", []models.Record{custom})

	rec, found, renewed := s.Renew("rec-1", 1)

	assert.True(t, found)
	assert.False(t, renewed)
	assert.Equal(t, custom, rec)
	assert.Equal(t, custom, s.Snapshot()[0])
}

func TestRenewMissingRecord(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", nil)

	_, found, _ := s.Renew("nope", 1)
	assert.False(t, found)
}

func TestRenewDoesNotMutateSnapshots(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", []models.Record{defaultRecord("rec-1", "2025-12-01")})
	before := s.Snapshot()

	s.Renew("rec-1", 1)

	assert.Equal(t, "2025-12-01", before[0].Default.EndDate, "earlier snapshot must not change")
}

func TestReplaceAll(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", []models.Record{defaultRecord("rec-1", "")})

	s.ReplaceAll([]models.Record{defaultRecord("rec-2", ""), defaultRecord("rec-3", "")})

	snapshot := s.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, "rec-2", snapshot[0].ID)
}

func TestApplyFetchDiscardsStaleSheet(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", []models.Record{defaultRecord("rec-1", "")})

	// A slow fetch for a previously viewed sheet arrives late.
	applied := s.ApplyFetch("Nov 2025", []models.Record{defaultRecord("stale", "")})

	assert.False(t, applied)
	assert.Equal(t, "rec-1", s.Snapshot()[0].ID)
}

func TestApplyFetchReplacesActiveSheet(t *testing.T) {
	s := store.New()
	s.SetActiveSheet("Dec 2025", []models.Record{defaultRecord("rec-1", "")})

	applied := s.ApplyFetch("Dec 2025", []models.Record{defaultRecord("rec-9", "")})

	assert.True(t, applied)
	assert.Equal(t, "rec-9", s.Snapshot()[0].ID)
}
