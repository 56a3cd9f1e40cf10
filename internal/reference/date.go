package reference

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// dateStrategy recognizes one spelling of a date coming out of the reference
// store. parse returns ok=false when the input is not in its format or is not
// a real calendar date.
type dateStrategy struct {
	name  string
	parse func(s string) (civil.Date, bool)
}

var compactDate = regexp.MustCompile(`^\d{8}$`)

// dateStrategies are tried in order, first success wins.
var dateStrategies = []dateStrategy{
	{name: "compact", parse: parseCompact},
	{name: "hyphenated", parse: parseHyphenated},
}

func parseCompact(s string) (civil.Date, bool) {
	if !compactDate.MatchString(s) {
		return civil.Date{}, false
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}

func parseHyphenated(s string) (civil.Date, bool) {
	if !strings.Contains(s, "-") {
		return civil.Date{}, false
	}
	d, err := civil.ParseDate(s)
	if err != nil || !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

// ParseDate turns a raw DATA column value into a calendar date. It accepts
// nil, strings, byte slices, integers and values the driver already decoded
// as time.Time. Anything it cannot read yields nil.
func ParseDate(raw any) *civil.Date {
	var s string
	switch v := raw.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		d := civil.DateOf(v)
		return &d
	case *time.Time:
		if v == nil {
			return nil
		}
		return ParseDate(*v)
	case string:
		s = v
	case []byte:
		s = string(v)
	case int:
		s = strconv.FormatInt(int64(v), 10)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		if v != float64(int64(v)) {
			return nil
		}
		s = strconv.FormatInt(int64(v), 10)
	default:
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, strategy := range dateStrategies {
		if d, ok := strategy.parse(s); ok {
			return &d
		}
	}
	return nil
}

// FormatTime renders a raw ORA column value as "HH:MM". The value must be
// all digits and at least four long; it is left-padded to six digits and the
// first four are used. Anything else renders as "-".
func FormatTime(raw any) string {
	var s string
	switch v := raw.(type) {
	case nil:
		return "-"
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int:
		s = strconv.Itoa(v)
	default:
		return "-"
	}

	s = strings.TrimSpace(s)
	if len(s) < 4 || !isDigits(s) {
		return "-"
	}
	if len(s) < 6 {
		s = strings.Repeat("0", 6-len(s)) + s
	}
	return s[0:2] + ":" + s[2:4]
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
