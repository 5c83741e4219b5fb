package replytext

import (
	"strings"
	"testing"
)

func TestExtractCutsAtSignature(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"2 eggs and toast",
		"",
		"John Doe <john@example.com>",
		"Sent from my iPhone",
	}, "\n")

	got := Extract(body, "John Doe", "john@example.com")
	if got != "2 eggs and toast" {
		t.Errorf("Extract: got %q, want %q", got, "2 eggs and toast")
	}
}

func TestExtractCutsAtAddressOnly(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"large latte",
		"porridge with honey",
		"On Wed, 5 Mar 2025, john@example.com wrote:",
		"> yesterday's entries",
	}, "\n")

	got := Extract(body, "John Doe", "john@example.com")
	want := "large latte\nporridge with honey"
	if got != want {
		t.Errorf("Extract: got %q, want %q", got, want)
	}
}

func TestExtractNeverIncludesMarkerLine(t *testing.T) {
	t.Parallel()

	body := "banana\nJohn Doe\nbanana again"
	got := Extract(body, "John Doe", "john@example.com")
	if strings.Contains(got, "John Doe") {
		t.Errorf("Extract retained marker line: %q", got)
	}
	if got != "banana" {
		t.Errorf("Extract: got %q, want %q", got, "banana")
	}
}

func TestExtractDropsTrailingBoilerplate(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"chicken salad",
		"--",
		"John Doe",
	}, "\n")

	got := Extract(body, "John Doe", "john@example.com")
	if got != "chicken salad" {
		t.Errorf("Extract: got %q, want %q", got, "chicken salad")
	}
}

func TestExtractNoMarkerKeepsWholeBody(t *testing.T) {
	t.Parallel()

	body := "protein shake\nand an apple"
	got := Extract(body, "John Doe", "john@example.com")
	if got != body {
		t.Errorf("Extract: got %q, want %q", got, body)
	}
}

func TestExtractNoMarkerStillTrimsBoilerplate(t *testing.T) {
	t.Parallel()

	body := "protein shake\n----"
	got := Extract(body, "John Doe", "john@example.com")
	if got != "protein shake" {
		t.Errorf("Extract: got %q, want %q", got, "protein shake")
	}
}

func TestExtractNormalizesCRLF(t *testing.T) {
	t.Parallel()

	body := "2 eggs and toast\r\n\r\nJohn Doe <john@example.com>\r\nSent from my iPhone"
	got := Extract(body, "John Doe", "john@example.com")
	if got != "2 eggs and toast" {
		t.Errorf("Extract: got %q, want %q", got, "2 eggs and toast")
	}
}

func TestExtractEmptyInput(t *testing.T) {
	t.Parallel()

	if got := Extract("", "John Doe", "john@example.com"); got != "" {
		t.Errorf("Extract(\"\"): got %q, want empty", got)
	}
}

func TestExtractEmptyMarkersDoNotCut(t *testing.T) {
	t.Parallel()

	body := "oatmeal\nwith berries"
	if got := Extract(body, "", ""); got != body {
		t.Errorf("Extract: got %q, want %q", got, body)
	}
}
