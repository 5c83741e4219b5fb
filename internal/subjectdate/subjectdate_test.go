package subjectdate

import (
	"errors"
	"testing"
	"time"
)

// now pins tests to a known date: Wednesday, 5 March 2025.
var now = time.Date(2025, time.March, 5, 9, 30, 0, 0, time.UTC)

func TestExtractOrdinalDayAndMonth(t *testing.T) {
	t.Parallel()

	d, err := Extract("Breakfast - Wed 5th March", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Long(); got != "Wednesday, 05-03-25" {
		t.Errorf("Long(): got %q, want %q", got, "Wednesday, 05-03-25")
	}
	if got := d.Short(); got != "05-03-25" {
		t.Errorf("Short(): got %q, want %q", got, "05-03-25")
	}
}

func TestExtractMonthThenDay(t *testing.T) {
	t.Parallel()

	d, err := Extract("Lunch for March 7", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Short(); got != "07-03-25" {
		t.Errorf("Short(): got %q, want %q", got, "07-03-25")
	}
}

func TestExtractMonthDayYear(t *testing.T) {
	t.Parallel()

	d, err := Extract("logging dinner: March 7th, 2024", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Short(); got != "07-03-24" {
		t.Errorf("Short(): got %q, want %q", got, "07-03-24")
	}
}

func TestExtractISODate(t *testing.T) {
	t.Parallel()

	d, err := Extract("Dinner 2025-03-05 at home", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Short(); got != "05-03-25" {
		t.Errorf("Short(): got %q, want %q", got, "05-03-25")
	}
}

func TestExtractNumericDayFirstWhenUnambiguous(t *testing.T) {
	t.Parallel()

	d, err := Extract("Snacks 25/12", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Short(); got != "25-12-25" {
		t.Errorf("Short(): got %q, want %q", got, "25-12-25")
	}
}

func TestExtractNumericMonthFirstDefault(t *testing.T) {
	t.Parallel()

	d, err := Extract("Snacks 03/07/25", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Small/small pairs read month-first like the upstream tracker.
	if got := d.Short(); got != "07-03-25" {
		t.Errorf("Short(): got %q, want %q", got, "07-03-25")
	}
}

func TestExtractRelativeWords(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Lunch today":         "05-03-25",
		"Dinner tonight":      "05-03-25",
		"Dinner for tomorrow": "06-03-25",
		"missed yesterday":    "04-03-25",
	}
	for subject, want := range cases {
		d, err := Extract(subject, now)
		if err != nil {
			t.Fatalf("Extract(%q): unexpected error: %v", subject, err)
		}
		if got := d.Short(); got != want {
			t.Errorf("Extract(%q): got %q, want %q", subject, got, want)
		}
	}
}

func TestExtractBareOrdinal(t *testing.T) {
	t.Parallel()

	d, err := Extract("Lunch on the 9th", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Short(); got != "09-03-25" {
		t.Errorf("Short(): got %q, want %q", got, "09-03-25")
	}
}

func TestExtractLongFormStartsWithWeekday(t *testing.T) {
	t.Parallel()

	d, err := Extract("meal plan for 2025-03-07", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := d.Long(); got != "Friday, 07-03-25" {
		t.Errorf("Long(): got %q, want %q", got, "Friday, 07-03-25")
	}
}

func TestExtractNoDate(t *testing.T) {
	t.Parallel()

	for _, subject := range []string{
		"no date here",
		"",
		"Wednesday",      // weekday alone is not a date
		"5 a day",        // bare number without ordinal suffix
		"order number 7", // ditto
	} {
		if _, err := Extract(subject, now); !errors.Is(err, ErrNoDate) {
			t.Errorf("Extract(%q): got %v, want ErrNoDate", subject, err)
		}
	}
}

func TestExtractRejectsImpossibleDates(t *testing.T) {
	t.Parallel()

	if _, err := Extract("brunch 30th February", now); !errors.Is(err, ErrNoDate) {
		t.Errorf("got %v, want ErrNoDate", err)
	}
}
