package util

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-01-05", "20240105", "2024/01/05"} {
		got, err := ParseDate(s)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: got %v", s, got)
		}
	}
	if _, err := ParseDate("05.01.2024"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDayKeepsLocalCalendarDate(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	got := Day(time.Date(2024, 3, 2, 1, 30, 0, 0, seoul))
	if FormatDate(got) != "2024-03-02" || got.Location() != time.UTC {
		t.Fatalf("unexpected day %v", got)
	}
}

func TestAddMonthsClampsMonthEnd(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"2024-03-31", -1, "2024-02-29"},
		{"2023-03-31", -1, "2023-02-28"},
		{"2024-05-31", -3, "2024-02-29"},
		{"2024-01-15", -1, "2023-12-15"},
		{"2024-08-31", -6, "2024-02-29"},
	}
	for _, c := range cases {
		in, _ := ParseDate(c.in)
		if got := FormatDate(AddMonths(in, c.n)); got != c.want {
			t.Fatalf("AddMonths(%s, %d) = %s, want %s", c.in, c.n, got, c.want)
		}
	}
}

func TestAddYearsLeapDay(t *testing.T) {
	in, _ := ParseDate("2024-02-29")
	if got := FormatDate(AddYears(in, -1)); got != "2023-02-28" {
		t.Fatalf("got %s", got)
	}
	if got := FormatDate(StartOfYear(in)); got != "2024-01-01" {
		t.Fatalf("got %s", got)
	}
}
