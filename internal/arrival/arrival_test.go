package arrival

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestWindow_StaysWithinPolicy(t *testing.T) {
	w := NewWindow()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		est := w.Estimate(now)
		assert.Assert(t, est.After(now))

		days := int(est.Sub(now).Hours() / 24)
		assert.Assert(t, days >= MinDays && days <= MaxDays, "got %d days", days)
		seen[days] = true
	}
	assert.Check(t, is.Len(seen, 3), "expected every day in the window to be drawn")
}

func TestWindow_InjectedDraw(t *testing.T) {
	w := &Window{Min: 5, Max: 7, intN: func(n int) int {
		assert.Equal(t, 3, n)
		return 2
	}}
	now := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, now.AddDate(0, 0, 7), w.Estimate(now))
}

func TestFixed(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), Fixed(5).Estimate(now))
}

func TestRemaining(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		estimated time.Time
		want      string
	}{
		{"past", now.Add(-time.Hour), Delivered},
		{"exactly now", now, Delivered},
		{"days hours minutes", now.Add(5*24*time.Hour + 3*time.Hour + 42*time.Minute + 10*time.Second), "5 days | 3 hrs | 42 mins"},
		{"under a minute", now.Add(30 * time.Second), "0 days | 0 hrs | 0 mins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(tt.estimated, now))
		})
	}
}
