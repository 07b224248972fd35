package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inspiredanalyst/submanager-server/internal/lifecycle"
	"github.com/inspiredanalyst/submanager-server/internal/models"
)

// Project derives the filtered, searched, sorted projection of records for
// presentation. Lifecycle classification is recomputed on every call, never
// cached. The underlying records are not mutated.
//
// Search matches a case-insensitive substring against every field value.
// Filter narrows to one lifecycle bucket and is a no-op for custom-schema
// sheets, which have no lifecycle. Default-schema results sort ascending by
// daysRemaining (soonest-expiring first) with Not Applicable records last;
// custom-schema results keep insertion order.
func Project(records []models.Record, schema models.Schema, search, filter string, now time.Time) []models.RecordView {
	term := strings.ToLower(strings.TrimSpace(search))

	views := make([]models.RecordView, 0, len(records))
	for _, rec := range records {
		eval := lifecycle.Evaluate(rec.EndDate(), now)
		fields := rec.Flatten(schema)

		if term != "" && !matches(fields, term) {
			continue
		}
		if !schema.IsCustom() && filter != "" && filter != models.FilterAll && eval.Status != filter {
			continue
		}

		views = append(views, models.RecordView{
			ID:            rec.ID,
			Fields:        fields,
			Status:        eval.Status,
			DaysRemaining: eval.DaysRemaining,
		})
	}

	if !schema.IsCustom() {
		sort.SliceStable(views, func(i, j int) bool {
			return sortKey(views[i]) < sortKey(views[j])
		})
	}
	return views
}

// ComputeStats summarizes a projection for the dashboard cards. It is
// meant to run over the unfiltered projection so the counts reflect the
// whole sheet.
func ComputeStats(views []models.RecordView) models.Stats {
	var stats models.Stats
	for _, v := range views {
		if amount, ok := v.Fields["amount"].(float64); ok {
			stats.TotalRevenue += amount
		}
		switch v.Status {
		case models.StatusActive:
			stats.ActiveCount++
		case models.StatusExpiringSoon:
			stats.ExpiringCount++
		case models.StatusExpired:
			stats.ExpiredCount++
		}
	}
	return stats
}

func matches(fields map[string]interface{}, term string) bool {
	for _, value := range fields {
		text := fmt.Sprint(value)
		if strings.Contains(strings.ToLower(text), term) {
			return true
		}
	}
	return false
}

// sortKey orders dated records by urgency and pushes undated ones to the
// end.
func sortKey(v models.RecordView) int {
	if v.Status == models.StatusNotApplicable {
		return int(^uint(0) >> 1) // max int
	}
	return v.DaysRemaining
}
