package quickupdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tracker-backend/internal/intent"
	"tracker-backend/internal/store"
)

const defaultPriority = "Medium"

// NormalizePriority title-cases v against the priority enum. An empty value
// yields Medium.
func NormalizePriority(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultPriority, nil
	}
	for _, p := range store.Priorities {
		if strings.EqualFold(p, v) {
			return p, nil
		}
	}
	return "", &store.ValidationError{Fields: map[string]string{
		intent.SlotPriority: fmt.Sprintf("%q is not one of %s", v, strings.Join(store.Priorities, ", ")),
	}}
}

var (
	inNRe      = regexp.MustCompile(`^in\s+(\d+)\s+(day|days|week|weeks)$`)
	weekdayRe  = regexp.MustCompile(`^(?:(this|next)\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	dateLayout = []string{store.DateLayout, "2006/01/02", "01/02/2006", "Jan 2 2006", "Jan 2, 2006", "January 2 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006"}
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

// ResolveDueDate turns a due-date expression into a calendar date relative
// to now. A bare or "this" weekday may be today; "next" weekday is the
// first one strictly after today.
func ResolveDueDate(expr string, now time.Time) (string, error) {
	e := strings.Join(strings.Fields(strings.ToLower(expr)), " ")
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch e {
	case "":
		return "", dueDateError(expr, "is required")
	case "today", "tonight":
		return today.Format(store.DateLayout), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1).Format(store.DateLayout), nil
	case "next week":
		return today.AddDate(0, 0, 7).Format(store.DateLayout), nil
	}
	if m := inNRe.FindStringSubmatch(e); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", dueDateError(expr, "is not a number of days")
		}
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return today.AddDate(0, 0, n).Format(store.DateLayout), nil
	}
	if m := weekdayRe.FindStringSubmatch(e); m != nil {
		ahead := (int(weekdays[m[2]]) - int(today.Weekday()) + 7) % 7
		if m[1] == "next" && ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format(store.DateLayout), nil
	}
	for _, layout := range dateLayout {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(expr), now.Location()); err == nil {
			return t.Format(store.DateLayout), nil
		}
	}
	return "", dueDateError(expr, "is not a date I understand")
}

func dueDateError(expr, msg string) error {
	return &store.ValidationError{Fields: map[string]string{
		intent.SlotDueDate: fmt.Sprintf("%q %s", expr, msg),
	}}
}
