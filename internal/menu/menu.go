package menu

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"mess_market/internal/config"
)

// Options is the per-run setup chosen by the seller before the sale
// starts.
type Options struct {
	EnableNegotiation bool
	StartingPrice     int
	Meal              string
	Mess              string
	NumMessages       int
}

// DetectMeal picks the earliest meal whose window has not ended yet;
// when every window for today is over, the configured default applies
// (the schedule builder rolls it to tomorrow).
func DetectMeal(windows map[string]config.MealWindow, defaultMeal string, now time.Time) string {
	nowMins := now.Hour()*60 + now.Minute()

	type candidate struct {
		meal string
		end  int
	}

	candidates := make([]candidate, 0, len(windows))

	for meal, w := range windows {
		end, err := parseMinutes(w.End)
		if err != nil {
			continue
		}

		candidates = append(candidates, candidate{meal: meal, end: end})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].end < candidates[j].end
	})

	for _, c := range candidates {
		if nowMins < c.end {
			return c.meal
		}
	}

	return defaultMeal
}

// Show runs the interactive run menu. Empty answers keep defaults.
func Show(
	cfg config.Sale,
	windows map[string]config.MealWindow,
	now time.Time,
	in io.Reader,
	out io.Writer,
) (Options, error) {
	scanner := bufio.NewScanner(in)

	detected := DetectMeal(windows, cfg.DefaultMeal, now)

	defaults := Options{
		EnableNegotiation: cfg.EnableNegotiation,
		StartingPrice:     cfg.StartingPrice,
		Meal:              detected,
		Mess:              cfg.DefaultMess,
		NumMessages:       cfg.DefaultNumMessages,
	}

	fmt.Fprintln(out, "══════════════════════════════════════")
	fmt.Fprintln(out, "      🍽  Mess QR Selling Bot")
	fmt.Fprintln(out, "══════════════════════════════════════")
	fmt.Fprintln(out, "  [0]  Run with default settings")
	fmt.Fprintln(out, "  [1]  Run with custom settings")
	fmt.Fprintln(out, "══════════════════════════════════════")

	choice, err := ask(scanner, out, "Enter your choice [0/1] (default: 0): ")
	if err != nil {
		return Options{}, err
	}

	if choice == "" || choice == "0" {
		return defaults, nil
	}

	opts := defaults

	answer, err := ask(scanner, out, "Enable negotiation? [0=No / 1=Yes] (default: 0): ")
	if err != nil {
		return Options{}, err
	}
	if answer != "" {
		opts.EnableNegotiation = answer == "1"
	}

	answer, err = ask(scanner, out, fmt.Sprintf("Starting price? (default: %d): ", cfg.StartingPrice))
	if err != nil {
		return Options{}, err
	}
	if price, convErr := strconv.Atoi(answer); convErr == nil && price >= 0 {
		opts.StartingPrice = price
	}

	answer, err = ask(scanner, out, fmt.Sprintf("Meal type? %v (default: %s): ", mealNames(windows), detected))
	if err != nil {
		return Options{}, err
	}
	if _, ok := windows[strings.ToLower(answer)]; ok {
		opts.Meal = strings.ToLower(answer)
	}

	answer, err = ask(scanner, out, fmt.Sprintf("Mess name? %v (default: %s): ", cfg.MessNames, cfg.DefaultMess))
	if err != nil {
		return Options{}, err
	}
	if mess, ok := lo.Find(cfg.MessNames, func(m string) bool {
		return strings.EqualFold(m, answer)
	}); ok {
		opts.Mess = mess
	}

	answer, err = ask(scanner, out, fmt.Sprintf("Number of messages to send? (default: %d): ", cfg.DefaultNumMessages))
	if err != nil {
		return Options{}, err
	}
	if num, convErr := strconv.Atoi(answer); convErr == nil && num >= 1 {
		opts.NumMessages = num
	}

	return opts, nil
}

func ask(scanner *bufio.Scanner, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}

		// EOF: treat as an empty answer so piped input works.
		return "", nil
	}

	return strings.TrimSpace(scanner.Text()), nil
}

func mealNames(windows map[string]config.MealWindow) []string {
	names := lo.Keys(windows)
	sort.Strings(names)

	return names
}

func parseMinutes(hhmm string) (int, error) {
	clockTime, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("time.Parse %q: %w", hhmm, err)
	}

	return clockTime.Hour()*60 + clockTime.Minute(), nil
}
