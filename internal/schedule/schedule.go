package schedule

import (
	"fmt"
	"time"

	"mess_market/internal/config"
	"mess_market/internal/domain"
)

// Step is one scheduled announcement: at SendTime the visible price
// becomes Price.
type Step struct {
	SendTime time.Time
	Price    int
}

// Schedule is the full announcement plan for one sale. Prices are
// non-increasing across Steps and StopTime is never before the last
// SendTime. Immutable after Build.
type Schedule struct {
	Steps    []Step
	StopTime time.Time
}

type BuildParams struct {
	Meal          string
	Windows       map[string]config.MealWindow
	NumMessages   int
	StartingPrice int
	PriceDrop     int
}

// Build computes equally-spaced announcement steps across the meal
// window. A window that already ended relative to now is shifted one
// day forward: meal windows recur daily. Pure computation, no timers.
func Build(now time.Time, p BuildParams) (Schedule, error) {
	window, ok := p.Windows[p.Meal]
	if !ok {
		return Schedule{}, fmt.Errorf("%q: %w", p.Meal, domain.ErrUnknownMeal)
	}

	start, err := atClockTime(now, window.Start)
	if err != nil {
		return Schedule{}, fmt.Errorf("window start: %w", err)
	}

	end, err := atClockTime(now, window.End)
	if err != nil {
		return Schedule{}, fmt.Errorf("window end: %w", err)
	}

	// Window already over today: schedule for tomorrow.
	if end.Before(now) {
		start = start.AddDate(0, 0, 1)
		end = end.AddDate(0, 0, 1)
	}

	total := end.Sub(start)

	interval := total
	if p.NumMessages > 1 {
		interval = total / time.Duration(p.NumMessages)
	}

	steps := make([]Step, 0, p.NumMessages)
	price := p.StartingPrice

	for i := 0; i < p.NumMessages; i++ {
		steps = append(steps, Step{
			SendTime: start.Add(time.Duration(i) * interval),
			Price:    price,
		})

		price = max(price-p.PriceDrop, 0)
	}

	return Schedule{Steps: steps, StopTime: end}, nil
}

func atClockTime(day time.Time, hhmm string) (time.Time, error) {
	clockTime, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("time.Parse %q: %w", hhmm, err)
	}

	return time.Date(
		day.Year(), day.Month(), day.Day(),
		clockTime.Hour(), clockTime.Minute(), 0, 0,
		day.Location(),
	), nil
}
