package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateCompare(t *testing.T) {
	cases := []struct {
		a, b Date
		want int
	}{
		{NewDate(2024, 6, 1), NewDate(2024, 6, 15), -1},
		{NewDate(2024, 6, 15), NewDate(2024, 6, 1), 1},
		{NewDate(2024, 6, 1), NewDate(2024, 6, 1), 0},
		{NewDate(2023, 12, 31), NewDate(2024, 1, 1), -1},
		{Date{}, NewDate(2024, 1, 1), -1},
		{NewDate(2024, 1, 1), Date{}, 1},
		{Date{}, Date{}, 0},
	}
	for i, tc := range cases {
		if got := tc.a.Compare(tc.b); got != tc.want {
			t.Fatalf("case %d: %v vs %v got %d want %d", i, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDateIn(t *testing.T) {
	june := Month{Year: 2024, Month: time.June}
	if !NewDate(2024, 6, 1).In(june) {
		t.Fatalf("2024-06-01 should be in June 2024")
	}
	if NewDate(2024, 5, 31).In(june) {
		t.Fatalf("2024-05-31 should not be in June 2024")
	}
	if NewDate(2023, 6, 10).In(june) {
		t.Fatalf("June of another year should not match")
	}
	if (Date{}).In(june) {
		t.Fatalf("null date must never match")
	}
}

func TestDateFormat(t *testing.T) {
	if got := NewDate(2024, 6, 5).Format(); got != "05/06/2024" {
		t.Fatalf("format got %q", got)
	}
	if got := (Date{}).Format(); got != "" {
		t.Fatalf("null date format got %q", got)
	}
}

func TestDateOfZeroTime(t *testing.T) {
	if DateOf(time.Time{}).Valid {
		t.Fatalf("zero time should be the null date")
	}
}

func TestNewMonth(t *testing.T) {
	m, err := NewMonth(2024, 6)
	if err != nil || m.Month != time.June || m.String() != "2024-06" {
		t.Fatalf("unexpected month %v err=%v", m, err)
	}
	for _, bad := range []int{0, 13, -1} {
		if _, err := NewMonth(2024, bad); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("month %d: expected ErrInvalidMonth, got %v", bad, err)
		}
	}
}

func TestParseStatusPolicy(t *testing.T) {
	cases := []struct {
		in   string
		want StatusPolicy
		ok   bool
	}{
		{"explicit", StatusExplicit, true},
		{" Presence ", StatusPresence, true},
		{"", "", false},
		{"derived", "", false},
	}
	for _, tc := range cases {
		got, err := ParseStatusPolicy(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
		} else if !errors.Is(err, ErrInvalidPolicy) {
			t.Fatalf("%q expected ErrInvalidPolicy, got %v", tc.in, err)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	if err := (Record{Client: "Ana"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Record{Client: "  "}).Validate(); !errors.Is(err, ErrEmptyClient) {
		t.Fatalf("expected ErrEmptyClient, got %v", err)
	}
}
