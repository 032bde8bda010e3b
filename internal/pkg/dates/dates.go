// Package dates normalizes the date inputs accepted on issuance into the
// canonical MM/DD/YYYY form and compares grant vs expiration dates.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Comparison is the outcome of comparing two dates.
type Comparison int

const (
	Equal Comparison = iota
	Earlier
	Later
)

// Short numeric inputs are validated by hand against calendar ranges; longer
// inputs run through an ordered format ladder, first valid parse wins.
var longFormats = []string{
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"1/2/06",
	"1/2/2006",
	"01/02/2006",
	"02/01/2006",
	"02 January, 2006",
	"02 Jan, 2006",
	"January 2, 2006",
	"01/02/06",
}

const canonical = "01/02/2006"

// ConvertDateFormat normalizes input to MM/DD/YYYY. The second return is
// false when no pattern matches or the date is out of calendar range.
func ConvertDateFormat(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if len(input) < 11 {
		return convertShort(input)
	}

	for _, layout := range longFormats {
		if t, err := time.Parse(layout, input); err == nil {
			return t.Format(canonical), true
		}
	}
	return "", false
}

// convertShort handles numeric month/day/year inputs with '/' or '-'
// separators, enforcing days-in-month limits. The leap rule is year%4 only,
// matching the validation behavior of every certificate issued so far.
func convertShort(input string) (string, bool) {
	sep := "/"
	if strings.Contains(input, "-") {
		sep = "-"
	}
	parts := strings.Split(input, sep)
	if len(parts) != 3 {
		return "", false
	}

	month, err1 := strconv.Atoi(parts[0])
	day, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}

	if month < 1 || month > 12 || day < 1 || year < 1900 || year > 9999 {
		return "", false
	}
	if day > daysInMonth(month, year) {
		return "", false
	}

	return fmt.Sprintf("%02d/%02d/%04d", month, day, year), true
}

func daysInMonth(month, year int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	default:
		if year%4 == 0 {
			return 29
		}
		return 28
	}
}

// CompareDates compares two canonical MM/DD/YYYY dates from the grant date's
// point of view. Issuance requires grant strictly Earlier than expiration.
func CompareDates(grant, expiration string) (Comparison, error) {
	g, err := time.Parse(canonical, grant)
	if err != nil {
		return Equal, err
	}
	e, err := time.Parse(canonical, expiration)
	if err != nil {
		return Equal, err
	}
	switch {
	case g.Before(e):
		return Earlier, nil
	case g.After(e):
		return Later, nil
	default:
		return Equal, nil
	}
}
