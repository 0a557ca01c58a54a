// Package arrival assigns the synthetic delivery estimate frozen into an order
// at creation and renders the time left until it.
package arrival

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	MinDays = 5
	MaxDays = 7

	Delivered = "Delivered"
)

type Estimator interface {
	Estimate(now time.Time) time.Time
}

// Window draws a whole number of days uniformly from [Min, Max].
type Window struct {
	Min, Max int
	intN     func(n int) int
}

func NewWindow() *Window {
	return &Window{Min: MinDays, Max: MaxDays, intN: rand.IntN}
}

func (w *Window) Estimate(now time.Time) time.Time {
	days := w.Min
	if span := w.Max - w.Min; span > 0 {
		days += w.intN(span + 1)
	}
	return now.AddDate(0, 0, days)
}

// Fixed always adds the same number of days.
type Fixed int

func (f Fixed) Estimate(now time.Time) time.Time {
	return now.AddDate(0, 0, int(f))
}

// Remaining formats the time between now and the estimate. The stored
// estimate and the order status are left untouched.
func Remaining(estimated, now time.Time) string {
	d := estimated.Sub(now)
	if d <= 0 {
		return Delivered
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	mins := int(d % time.Hour / time.Minute)
	return fmt.Sprintf("%d days | %d hrs | %d mins", days, hours, mins)
}
