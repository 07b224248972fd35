package lifecycle_test

import (
	"testing"
	"time"

	"github.com/inspiredanalyst/submanager-server/internal/lifecycle"
	"github.com/inspiredanalyst/submanager-server/internal/models"
	"github.com/stretchr/testify/assert"
)

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestEvaluateBoundaries(t *testing.T) {
	now := date(2025, 6, 10)

	tests := []struct {
		name       string
		endDate    string
		wantStatus string
		wantDays   int
	}{
		{"four days out is active", "2025-06-14", models.StatusActive, 4},
		{"three days out is expiring", "2025-06-13", models.StatusExpiringSoon, 3},
		{"today is expiring", "2025-06-10", models.StatusExpiringSoon, 0},
		{"yesterday is expired", "2025-06-09", models.StatusExpired, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := lifecycle.Evaluate(tt.endDate, now)
			assert.Equal(t, tt.wantStatus, eval.Status)
			assert.Equal(t, tt.wantDays, eval.DaysRemaining)
		})
	}
}

func TestEvaluateSubscriptionScenarios(t *testing.T) {
	// A subscription started 2025-12-01 for one month ends 2026-01-01.
	end := lifecycle.FormatDate(lifecycle.AddMonths(date(2025, 12, 1), 1))
	assert.Equal(t, "2026-01-01", end)

	evalA := lifecycle.Evaluate(end, date(2025, 12, 20))
	assert.Equal(t, models.StatusActive, evalA.Status)
	assert.Equal(t, 12, evalA.DaysRemaining)

	evalB := lifecycle.Evaluate(end, date(2025, 12, 30))
	assert.Equal(t, models.StatusExpiringSoon, evalB.Status)
	assert.Equal(t, 2, evalB.DaysRemaining)

	evalC := lifecycle.Evaluate(end, date(2026, 1, 5))
	assert.Equal(t, models.StatusExpired, evalC.Status)
	assert.Equal(t, -4, evalC.DaysRemaining)
}

func TestEvaluateNoEndDate(t *testing.T) {
	now := date(2025, 6, 10)

	for _, endDate := range []string{"", "   ", "not-a-date"} {
		eval := lifecycle.Evaluate(endDate, now)
		assert.Equal(t, models.StatusNotApplicable, eval.Status)
		assert.Equal(t, 0, eval.DaysRemaining)
	}
}

func TestEvaluateDeterministicAndDecreasing(t *testing.T) {
	end := "2025-06-20"
	now := date(2025, 6, 10)

	first := lifecycle.Evaluate(end, now)
	second := lifecycle.Evaluate(end, now)
	assert.Equal(t, first, second, "evaluation must be deterministic for a fixed now")

	// daysRemaining decreases by exactly 1 per elapsed calendar day.
	for i := 0; i < 15; i++ {
		today := lifecycle.Evaluate(end, now.AddDate(0, 0, i))
		tomorrow := lifecycle.Evaluate(end, now.AddDate(0, 0, i+1))
		assert.Equal(t, today.DaysRemaining-1, tomorrow.DaysRemaining)
	}
}

func TestEvaluateIgnoresTimeOfDay(t *testing.T) {
	end := "2026-01-01"

	morning := time.Date(2025, 12, 20, 0, 1, 0, 0, time.UTC)
	night := time.Date(2025, 12, 20, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, lifecycle.Evaluate(end, morning), lifecycle.Evaluate(end, night))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2025-12-01", date(2025, 12, 1), true},
		{"2025/12/01", date(2025, 12, 1), true},
		{"01/12/2025", date(2025, 12, 1), true}, // day-first
		{"31-01-2025", date(2025, 1, 31), true},
		{" 2025-12-01 ", date(2025, 12, 1), true},
		{"31/02/2025", time.Time{}, false}, // no such day
		{"2025-13-01", time.Time{}, false},
		{"2025-12", time.Time{}, false},
		{"", time.Time{}, false},
		{"abc-de-fg", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := lifecycle.ParseDate(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.input)
		}
	}
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"jan 31 clamps to feb 28", date(2025, 1, 31), 1, date(2025, 2, 28)},
		{"jan 31 clamps to feb 29 in leap year", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"mar 31 clamps to apr 30", date(2025, 3, 31), 1, date(2025, 4, 30)},
		{"mid-month is untouched", date(2025, 4, 15), 1, date(2025, 5, 15)},
		{"year rollover", date(2025, 12, 1), 1, date(2026, 1, 1)},
		{"several months", date(2025, 1, 31), 3, date(2025, 4, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lifecycle.AddMonths(tt.start, tt.months))
		})
	}
}
