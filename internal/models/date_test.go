package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_SourceLayout(t *testing.T) {
	d, err := ParseDate(SourceDate, " 15.03.2021 ")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2021, time.March, 15), d)
	assert.Equal(t, "2021-03-15", d.String())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate(SourceDate, "2021-03-15")
	assert.Error(t, err)
}

func TestDate_FirstOfMonth(t *testing.T) {
	tests := []struct {
		in   Date
		want Date
	}{
		{NewDate(2021, time.January, 1), NewDate(2021, time.January, 1)},
		{NewDate(2021, time.January, 31), NewDate(2021, time.January, 1)},
		{NewDate(2020, time.February, 29), NewDate(2020, time.February, 1)},
	}
	for _, tt := range tests {
		if got := tt.in.FirstOfMonth(); got != tt.want {
			t.Errorf("%s.FirstOfMonth() = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDate_AddMonthsClampsDay(t *testing.T) {
	tests := []struct {
		in   Date
		n    int
		want Date
	}{
		{NewDate(2021, time.March, 31), -1, NewDate(2021, time.February, 28)},
		{NewDate(2020, time.March, 31), -1, NewDate(2020, time.February, 29)},
		{NewDate(2021, time.January, 15), -3, NewDate(2020, time.October, 15)},
		{NewDate(2021, time.January, 15), 12, NewDate(2022, time.January, 15)},
	}
	for _, tt := range tests {
		if got := tt.in.AddMonths(tt.n); got != tt.want {
			t.Errorf("%s.AddMonths(%d) = %s, want %s", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestDate_Compare(t *testing.T) {
	a := NewDate(2021, time.May, 3)
	b := NewDate(2021, time.May, 4)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(NewDate(2021, time.May, 3)))
}

func TestDate_JSON(t *testing.T) {
	type row struct {
		Date Date `json:"date"`
	}
	b, err := json.Marshal(row{Date: NewDate(2022, time.December, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2022-12-01"}`, string(b))

	var back row
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, NewDate(2022, time.December, 1), back.Date)

	b, err = json.Marshal(row{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":null}`, string(b))
}

func TestDate_MonthKey(t *testing.T) {
	d := NewDate(2021, time.July, 19)
	assert.Equal(t, "2021-07", d.MonthKey())

	m, err := ParseMonthKey("2021-07")
	require.NoError(t, err)
	assert.Equal(t, d.FirstOfMonth(), m)
}
