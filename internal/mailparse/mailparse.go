// Package mailparse provides a structured view over a raw RFC 5322
// message: the decoded subject plus the first text/plain body part.
package mailparse

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// ErrNoPlainTextPart is returned when a message carries no text/plain
// body part anywhere in its MIME tree.
var ErrNoPlainTextPart = errors.New("message has no text/plain part")

// Envelope is the parsed view of an inbound message. TextBody holds the
// payload of the first text/plain part found in reading order (leaves
// are visited depth-first).
type Envelope struct {
	Subject  string
	TextBody string
}

// Parse reads a raw message into an Envelope. Unknown charsets and
// transfer encodings are tolerated, the part body is then passed through
// undecoded. Parse fails with ErrNoPlainTextPart if no plain-text body
// exists; nothing downstream can work without one.
func Parse(raw []byte) (*Envelope, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	env := &Envelope{}
	// On an unknown header charset the raw value is kept as-is.
	env.Subject, _ = e.Header.Text("Subject")

	body, err := firstPlainText(e)
	if err != nil {
		return nil, err
	}
	env.TextBody = body

	return env, nil
}

// firstPlainText walks the MIME tree depth-first and returns the payload
// of the first non-attachment text/plain leaf.
func firstPlainText(e *message.Entity) (string, error) {
	if mr := e.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !tolerable(err) {
				return "", fmt.Errorf("failed to read part: %w", err)
			}

			body, err := firstPlainText(part)
			if err == nil {
				return body, nil
			}
			if !errors.Is(err, ErrNoPlainTextPart) {
				return "", err
			}
		}
		return "", ErrNoPlainTextPart
	}

	contentType, _, err := e.Header.ContentType()
	if err != nil || contentType != "text/plain" {
		return "", ErrNoPlainTextPart
	}
	if disp, _, _ := e.Header.ContentDisposition(); disp == "attachment" {
		return "", ErrNoPlainTextPart
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

// tolerable reports whether a parse error only concerns an unknown
// charset or transfer encoding, which still leaves a readable entity.
func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
