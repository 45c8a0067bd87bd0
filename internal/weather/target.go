package weather

import (
	"time"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
)

// DateLayout is the only accepted date format
const DateLayout = "2006-01-02"

// Kind selects which upstream shape answers a query
type Kind int

const (
	KindNow Kind = iota
	KindPast
	KindToday
	KindFuture
)

func (k Kind) String() string {
	switch k {
	case KindNow:
		return "now"
	case KindPast:
		return "past"
	case KindToday:
		return "today"
	case KindFuture:
		return "future"
	default:
		return "unknown"
	}
}

// Target is the temporal part of a query. Date is empty for KindNow.
type Target struct {
	Kind Kind
	Date string
}

// Now targets the live snapshot without echoing a date
func Now() Target {
	return Target{Kind: KindNow}
}

// Dated reports whether the record should carry the date
func (t Target) Dated() bool {
	return t.Kind != KindNow
}

// ValidateDate checks that s is a real calendar date in DateLayout
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return errorsx.Wrapf(errorsx.ErrInvalidInput, "date %q must be a calendar date in YYYY-MM-DD format", s)
	}
	return nil
}

// Classify compares date with the calendar day of now, both taken at
// midnight in zone. A nil zone means UTC.
func Classify(date string, now time.Time, zone *time.Location) (Target, error) {
	if zone == nil {
		zone = time.UTC
	}

	day, err := time.ParseInLocation(DateLayout, date, zone)
	if err != nil {
		return Target{}, errorsx.Wrapf(errorsx.ErrInvalidInput, "date %q must be a calendar date in YYYY-MM-DD format", date)
	}

	local := now.In(zone)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)

	switch {
	case day.Before(today):
		return Target{Kind: KindPast, Date: date}, nil
	case day.After(today):
		return Target{Kind: KindFuture, Date: date}, nil
	default:
		return Target{Kind: KindToday, Date: date}, nil
	}
}
