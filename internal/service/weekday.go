package service

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

var weekdayLabels = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda-feira",
	time.Tuesday:   "Terça-feira",
	time.Wednesday: "Quarta-feira",
	time.Thursday:  "Quinta-feira",
	time.Friday:    "Sexta-feira",
	time.Saturday:  "Sábado",
}

// ParseWeekday maps a Portuguese day name to a weekday. Matching ignores
// case, accents, surrounding spaces and the "-feira" suffix, so "Terça-feira",
// "terca" and " TERÇA " are all Tuesday.
func ParseWeekday(label string) (time.Weekday, bool) {
	key := foldAccents(strings.ToLower(strings.TrimSpace(label)))
	key = strings.TrimSuffix(key, "-feira")
	key = strings.TrimSuffix(key, " feira")
	wd, ok := weekdays[strings.TrimSpace(key)]
	return wd, ok
}

// WeekdayLabel returns the canonical Portuguese label of a weekday.
func WeekdayLabel(wd time.Weekday) string {
	return weekdayLabels[wd]
}

// NextMeeting returns the date (YYYY-MM-DD) of the next occurrence of the
// given weekday, counting today. A label that is not a known day name is
// returned unchanged.
func NextMeeting(label string, now time.Time) string {
	wd, ok := ParseWeekday(label)
	if !ok {
		return label
	}

	days := (int(wd) - int(now.Weekday()) + 7) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, now.Location()).Format(models.DateLayout)
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
