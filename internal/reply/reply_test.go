package reply

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/emersion/go-message"
)

var testOpts = Options{
	TextBody: "Thanks! I just logged 350 calories.",
	FromName: "Food Log",
	FromAddr: "food@mealpost.io",
}

func originalWithAttachment(t *testing.T) []byte {
	t.Helper()
	return []byte(strings.Join([]string{
		"From: John Doe <john@example.com>",
		"To: food@mealpost.io",
		"Subject: Breakfast - Wed 5th March",
		"Message-Id: <orig123@example.com>",
		"Content-Type: multipart/mixed; boundary=mixed1",
		"",
		"--mixed1",
		"Content-Type: text/plain",
		"",
		"2 eggs and toast",
		"--mixed1",
		"Content-Type: application/pdf; name=\"report.pdf\"",
		"Content-Disposition: attachment; filename=\"report.pdf\"",
		"Content-Transfer-Encoding: base64",
		"",
		"SGVsbG8gV29ybGQ=",
		"--mixed1--",
	}, "\r\n"))
}

// collectParts flattens a parsed entity tree into its leaf parts.
func collectParts(t *testing.T, e *message.Entity) []*message.Entity {
	t.Helper()

	mr := e.MultipartReader()
	if mr == nil {
		// Buffer the body so it survives the reader advancing to the
		// next part.
		body, err := io.ReadAll(e.Body)
		if err != nil {
			t.Fatalf("failed to buffer part body: %v", err)
		}
		e.Body = bytes.NewReader(body)
		return []*message.Entity{e}
	}

	var leaves []*message.Entity
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read part: %v", err)
		}
		leaves = append(leaves, collectParts(t, p)...)
	}
	return leaves
}

func TestBuildThreadingHeaders(t *testing.T) {
	t.Parallel()

	raw, err := Build(originalWithAttachment(t), testOpts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, err := message.Read(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to parse reply: %v", err)
	}

	if got := msg.Header.Get("In-Reply-To"); got != "<orig123@example.com>" {
		t.Errorf("In-Reply-To: got %q, want %q", got, "<orig123@example.com>")
	}
	if got := msg.Header.Get("References"); got != "<orig123@example.com>" {
		t.Errorf("References: got %q, want %q", got, "<orig123@example.com>")
	}
	if got := msg.Header.Get("Subject"); got != "Re: Breakfast - Wed 5th March" {
		t.Errorf("Subject: got %q, want %q", got, "Re: Breakfast - Wed 5th March")
	}
	if got := msg.Header.Get("To"); !strings.Contains(got, "john@example.com") {
		t.Errorf("To: got %q, want the original sender", got)
	}
	if got := msg.Header.Get("From"); !strings.Contains(got, "food@mealpost.io") {
		t.Errorf("From: got %q, want the configured sender", got)
	}
	if id := msg.Header.Get("Message-Id"); id == "" || id == "<orig123@example.com>" {
		t.Errorf("Message-Id: got %q, want a fresh identifier", id)
	}

	mediaType, _, err := msg.Header.ContentType()
	if err != nil || mediaType != "multipart/mixed" {
		t.Errorf("Content-Type: got %q (%v), want multipart/mixed", mediaType, err)
	}
}

func TestBuildPrefersReplyTo(t *testing.T) {
	t.Parallel()

	raw := []byte(strings.Join([]string{
		"From: John Doe <john@example.com>",
		"Reply-To: diary@example.com",
		"Subject: Lunch",
		"Message-Id: <m2@example.com>",
		"Content-Type: text/plain",
		"",
		"soup",
	}, "\r\n"))

	out, err := Build(raw, testOpts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, err := message.Read(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to parse reply: %v", err)
	}
	if got := msg.Header.Get("To"); got != "diary@example.com" {
		t.Errorf("To: got %q, want %q", got, "diary@example.com")
	}
}

func TestBuildBodyAndEmbeddedOriginal(t *testing.T) {
	t.Parallel()

	raw, err := Build(originalWithAttachment(t), testOpts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, err := message.Read(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to parse reply: %v", err)
	}

	var replyText string
	var embeddedRaw []byte
	for _, part := range collectParts(t, msg) {
		mediaType, _, _ := part.Header.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			t.Fatalf("failed to read part body: %v", err)
		}
		switch mediaType {
		case "text/plain":
			replyText = string(body)
		case "message/rfc822":
			embeddedRaw = body
		}
	}

	if !strings.Contains(replyText, "350 calories") {
		t.Errorf("reply text part: got %q", replyText)
	}
	if len(embeddedRaw) == 0 {
		t.Fatal("no message/rfc822 part in reply")
	}

	// The embedded original must be the redacted version: same headers,
	// attachment payload replaced with the placeholder.
	embedded, err := message.Read(bytes.NewReader(embeddedRaw))
	if err != nil {
		t.Fatalf("failed to parse embedded original: %v", err)
	}
	if got := embedded.Header.Get("Message-Id"); got != "<orig123@example.com>" {
		t.Errorf("embedded Message-Id: got %q, want %q", got, "<orig123@example.com>")
	}

	var placeholder string
	for _, part := range collectParts(t, embedded) {
		if disp := part.Header.Get("Content-Disposition"); disp != "" {
			t.Errorf("embedded original still has disposition %q", disp)
		}
		body, _ := io.ReadAll(part.Body)
		if strings.Contains(string(body), "Attachment removed") {
			placeholder = string(body)
			mediaType, _, _ := part.Header.ContentType()
			if mediaType != "text/plain" {
				t.Errorf("placeholder part type: got %q, want text/plain", mediaType)
			}
		}
	}
	want := "Attachment removed: report.pdf (application/pdf, 11 bytes)"
	if placeholder != want {
		t.Errorf("placeholder: got %q, want %q", placeholder, want)
	}
}

func TestBuildMissingHeaders(t *testing.T) {
	t.Parallel()

	noID := []byte("From: a@b.c\r\nSubject: hi\r\n\r\nbody\r\n")
	if _, err := Build(noID, testOpts); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("missing Message-ID: got %v, want ErrMissingHeader", err)
	}

	noSubject := []byte("From: a@b.c\r\nMessage-Id: <x@b.c>\r\n\r\nbody\r\n")
	if _, err := Build(noSubject, testOpts); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("missing Subject: got %v, want ErrMissingHeader", err)
	}
}

func TestRedactIdempotent(t *testing.T) {
	t.Parallel()

	original, err := message.Read(bytes.NewReader(originalWithAttachment(t)))
	if err != nil {
		t.Fatalf("failed to parse original: %v", err)
	}

	once, err := Redact(original)
	if err != nil {
		t.Fatalf("first redact: %v", err)
	}
	var buf bytes.Buffer
	if err := once.WriteTo(&buf); err != nil {
		t.Fatalf("failed to serialize: %v", err)
	}

	reparsed, err := message.Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to reparse: %v", err)
	}
	twice, err := Redact(reparsed)
	if err != nil {
		t.Fatalf("second redact: %v", err)
	}

	var texts []string
	for _, part := range collectParts(t, twice) {
		body, _ := io.ReadAll(part.Body)
		texts = append(texts, string(body))
	}
	if len(texts) != 2 {
		t.Fatalf("part count after double redact: got %d, want 2", len(texts))
	}
	if want := "Attachment removed: report.pdf (application/pdf, 11 bytes)"; texts[1] != want {
		t.Errorf("placeholder after double redact: got %q, want %q", texts[1], want)
	}
}
