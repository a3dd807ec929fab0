// Package contract resolves the tradable quarterly-futures contract code for
// a base instrument symbol on a given date.
//
// Quarterly futures use the standard month letters H (March), M (June),
// U (September) and Z (December). Within a contract month the front contract
// rolls to the next quarter on the second Friday; outside contract months the
// front contract is simply the next quarter-end month.
package contract

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMonth indicates a month value outside January..December. There
// are exactly twelve valid months, so hitting this means the input date is
// corrupt; callers must treat it as fatal rather than defaulting.
var ErrInvalidMonth = errors.New("invalid month")

// Resolve maps a base symbol and a date to the contract code traded on that
// date, e.g. Resolve("ES", 2024-01-15) == "ESH4".
//
// The year suffix is always the input date's year modulo 10, including for
// December dates past the roll, where the resolved March contract actually
// expires the following calendar year. Downstream consumers rely on the
// suffix being derived from the request date, so it is not incremented
// across that roll.
func Resolve(symbol string, date time.Time) (string, error) {
	letter, err := frontMonthLetter(date)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%s%d", symbol, letter, date.Year()%10), nil
}

// frontMonthLetter picks the contract month letter for the given date.
func frontMonthLetter(date time.Time) (string, error) {
	roll := SecondFriday(date)

	switch date.Month() {
	case time.January, time.February:
		return "H", nil
	case time.March:
		if date.Before(roll) {
			return "H", nil
		}
		return "M", nil
	case time.April, time.May:
		return "M", nil
	case time.June:
		if date.Before(roll) {
			return "M", nil
		}
		return "U", nil
	case time.July, time.August:
		return "U", nil
	case time.September:
		if date.Before(roll) {
			return "U", nil
		}
		return "Z", nil
	case time.October, time.November:
		return "Z", nil
	case time.December:
		if date.Before(roll) {
			return "Z", nil
		}
		return "H", nil
	default:
		return "", fmt.Errorf("%w: %d", ErrInvalidMonth, int(date.Month()))
	}
}

// SecondFriday returns midnight of the second Friday of the month containing
// the given date, in the date's location. The roll applies from any time of
// day on that Friday, since any non-midnight date compares after it.
func SecondFriday(date time.Time) time.Time {
	firstOfMonth := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	daysToFriday := (int(time.Friday) - int(firstOfMonth.Weekday()) + 7) % 7
	firstFriday := firstOfMonth.AddDate(0, 0, daysToFriday)
	return firstFriday.AddDate(0, 0, 7)
}
