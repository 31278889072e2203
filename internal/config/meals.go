package config

// MealWindow is the daily-recurring announcement window for one meal
// type, in local "HH:MM" wall-clock time.
type MealWindow struct {
	Start string
	End   string
}

// MealWindows returns the configured meal timetable. The table is fixed
// per deployment; announcement times are derived from it every run.
func MealWindows() map[string]MealWindow {
	return map[string]MealWindow{
		"breakfast": {Start: "07:30", End: "09:30"},
		"lunch":     {Start: "12:30", End: "14:30"},
		"dinner":    {Start: "19:30", End: "21:30"},
	}
}
