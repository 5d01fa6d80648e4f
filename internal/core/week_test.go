package core

import (
	"errors"
	"testing"
)

func TestWeekStart(t *testing.T) {
	wed := NewDate(2025, 3, 5)
	cases := []struct {
		d    Date
		dow  int
		want Date
	}{
		{wed, 1, NewDate(2025, 3, 3)},
		{wed, 0, NewDate(2025, 3, 2)},
		{wed, 6, NewDate(2025, 3, 1)},
		{wed, 3, wed},
		{NewDate(2025, 3, 3), 1, NewDate(2025, 3, 3)},
		{NewDate(2025, 3, 9), 1, NewDate(2025, 3, 3)},
		{wed, 42, NewDate(2025, 3, 3)},
	}
	for _, tc := range cases {
		if got := WeekStart(tc.d, tc.dow); !got.Equal(tc.want) {
			t.Fatalf("WeekStart(%s, %d) = %s, want %s", tc.d, tc.dow, got, tc.want)
		}
	}
}

func TestInWeek(t *testing.T) {
	start := NewDate(2025, 3, 3)
	if !InWeek(start, start) || !InWeek(start, NewDate(2025, 3, 9)) {
		t.Fatal("week bounds are inclusive")
	}
	if InWeek(start, NewDate(2025, 3, 10)) || InWeek(start, NewDate(2025, 3, 2)) {
		t.Fatal("dates outside week reported inside")
	}
}

func TestUserPreferences(t *testing.T) {
	p := DefaultPreferences("u1")
	if p.WeekStartDOW != 1 || p.NoticeDOW != nil {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if _, ok := p.NextNotice(NewDate(2025, 3, 5)); ok {
		t.Fatal("no notice day set")
	}

	fri, wed, mon := 5, 3, 1
	from := NewDate(2025, 3, 5)
	for dow, want := range map[*int]Date{&fri: NewDate(2025, 3, 7), &wed: from, &mon: NewDate(2025, 3, 10)} {
		p.NoticeDOW = dow
		got, ok := p.NextNotice(from)
		if !ok || !got.Equal(want) {
			t.Fatalf("NextNotice(%d) = %s, want %s", *dow, got, want)
		}
	}

	bad := 7
	p.NoticeDOW = &bad
	if err := p.Validate(); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
	p.NoticeDOW = nil
	p.WeekStartDOW = -1
	if err := p.Validate(); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}
