// Package models defines data structures for finhub
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ISODate is the serialization layout of every Date leaving the pipeline.
const ISODate = "2006-01-02"

// SourceDate is the day.month.year layout used by the spreadsheet exports.
const SourceDate = "02.01.2006"

// Date is a calendar day without time of day or zone. The zero value is an
// unset date. Dates are comparable and safe to use as map keys.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns the normalized date (Jan 32 becomes Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{y, m, d}
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses s with layout. Leading and trailing spaces are ignored.
func ParseDate(layout, s string) (Date, error) {
	t, err := time.Parse(layout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// ParseFlexibleDate accepts the ISO layout of stage files and the
// day.month.year layout of source exports.
func ParseFlexibleDate(s string) (Date, error) {
	if d, err := ParseDate(ISODate, s); err == nil {
		return d, nil
	}
	return ParseDate(SourceDate, s)
}

// ParseISODate parses a year-month-day string.
func ParseISODate(s string) (Date, error) {
	return ParseDate(ISODate, s)
}

func (d Date) Year() int          { return d.y }
func (d Date) Month() time.Month  { return d.m }
func (d Date) Day() int           { return d.d }
func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) Time() time.Time    { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.y != o.y:
		return cmpInt(d.y, o.y)
	case d.m != o.m:
		return cmpInt(int(d.m), int(o.m))
	default:
		return cmpInt(d.d, o.d)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// FirstOfMonth snaps d to the first day of its month.
func (d Date) FirstOfMonth() Date {
	return Date{d.y, d.m, 1}
}

// AddMonths shifts d by n calendar months, clamping the day to the length
// of the target month (Mar 31 minus one month is Feb 28 or 29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.y, d.m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.d
	if day > last {
		day = last
	}
	return Date{first.Year(), first.Month(), day}
}

// MonthKey returns the "2006-01" form used to address a month.
func (d Date) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", d.y, int(d.m))
}

// ParseMonthKey parses "2006-01" into the first day of that month.
func ParseMonthKey(s string) (Date, error) {
	return ParseDate("2006-01", s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.y, int(d.m), d.d)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	v, err := ParseISODate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
