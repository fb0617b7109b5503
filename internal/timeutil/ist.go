package timeutil

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30). Business dates are
// always evaluated in IST regardless of the server's local zone.
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if Asia/Kolkata not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// DateLayout is the wire and storage format of a business date.
const DateLayout = "2006-01-02"

// Now returns the current time in IST
func Now() time.Time {
	return time.Now().In(IST)
}

// BusinessDate returns the IST calendar date of t as YYYY-MM-DD.
func BusinessDate(t time.Time) string {
	return t.In(IST).Format(DateLayout)
}

// Today returns the current IST business date.
func Today() string {
	return BusinessDate(Now())
}

// ParseDate parses a YYYY-MM-DD business date and returns its normalized form.
func ParseDate(value string) (string, error) {
	t, err := time.ParseInLocation(DateLayout, value, IST)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t.Format(DateLayout), nil
}
