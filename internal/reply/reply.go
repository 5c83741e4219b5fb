// Package reply builds threaded MIME replies to raw inbound messages.
// The reply carries a multipart/alternative body followed by the original
// message as a nested message/rfc822 part, with every attachment in the
// original replaced by a text placeholder.
package reply

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/emersion/go-message"
	"github.com/google/uuid"
)

// ErrMissingHeader is returned when the original message lacks the
// Message-ID or Subject header. Both are required for threading and the
// subject rewrite; composing without them would produce an orphaned
// reply, so this is a hard failure.
var ErrMissingHeader = errors.New("original message missing Message-ID or Subject header")

// Options carries the reply bodies and the sender identity.
type Options struct {
	TextBody string
	HTMLBody string
	FromName string
	FromAddr string
}

// Build composes a reply to rawOriginal and serializes it to a raw
// message suitable for transport.
//
// The result is a multipart/mixed container holding a multipart/alternative
// body (plain part only if TextBody is non-empty, HTML part only if
// HTMLBody is non-empty) followed by the redacted original as
// message/rfc822. Threading headers point at the original: In-Reply-To and
// References get its Message-ID, the subject becomes "Re: " + its subject,
// and To is its Reply-To when present, else its From.
func Build(rawOriginal []byte, opts Options) ([]byte, error) {
	original, err := message.Read(bytes.NewReader(rawOriginal))
	if err != nil && !tolerable(err) {
		return nil, fmt.Errorf("failed to parse original message: %w", err)
	}

	origID := original.Header.Get("Message-Id")
	origSubject := original.Header.Get("Subject")
	if origID == "" || origSubject == "" {
		return nil, ErrMissingHeader
	}

	to := original.Header.Get("Reply-To")
	if to == "" {
		to = original.Header.Get("From")
	}

	redacted, err := Redact(original)
	if err != nil {
		return nil, fmt.Errorf("failed to redact original message: %w", err)
	}

	var origBuf bytes.Buffer
	if err := redacted.WriteTo(&origBuf); err != nil {
		return nil, fmt.Errorf("failed to serialize redacted original: %w", err)
	}

	var alternatives []*message.Entity
	if opts.TextBody != "" {
		part, err := textPart("text/plain", opts.TextBody)
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, part)
	}
	if opts.HTMLBody != "" {
		part, err := textPart("text/html", opts.HTMLBody)
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, part)
	}

	var altHeader message.Header
	altHeader.SetContentType("multipart/alternative", nil)
	body, err := message.NewMultipart(altHeader, alternatives)
	if err != nil {
		return nil, fmt.Errorf("failed to build alternative body: %w", err)
	}

	var rfcHeader message.Header
	rfcHeader.SetContentType("message/rfc822", nil)
	embedded, err := message.New(rfcHeader, bytes.NewReader(origBuf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to embed original message: %w", err)
	}

	from := mail.Address{Name: opts.FromName, Address: opts.FromAddr}

	var h message.Header
	h.SetContentType("multipart/mixed", nil)
	h.Set("Mime-Version", "1.0")
	h.Set("Message-Id", newMessageID(opts.FromAddr))
	h.Set("In-Reply-To", origID)
	h.Set("References", origID)
	h.Set("Subject", "Re: "+origSubject)
	h.Set("To", to)
	h.Set("From", from.String())

	root, err := message.NewMultipart(h, []*message.Entity{body, embedded})
	if err != nil {
		return nil, fmt.Errorf("failed to build reply: %w", err)
	}

	var out bytes.Buffer
	if err := root.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("failed to serialize reply: %w", err)
	}
	return out.Bytes(), nil
}

// Redact returns a copy of the entity tree in which every part flagged as
// an attachment is replaced by a text/plain placeholder naming the
// removed file, its content type and its decoded size. The disposition
// and transfer-encoding headers are dropped from redacted parts; all
// other parts pass through unchanged. Redacting an already-redacted tree
// is a no-op.
func Redact(e *message.Entity) (*message.Entity, error) {
	if mr := e.MultipartReader(); mr != nil {
		var parts []*message.Entity
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !tolerable(err) {
				return nil, err
			}
			rp, err := Redact(p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, rp)
		}
		return message.NewMultipart(copyHeader(e.Header), parts)
	}

	payload, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(e.Header.Get("Content-Disposition"), "attachment") {
		return message.New(copyHeader(e.Header), bytes.NewReader(payload))
	}

	contentType, ctParams, _ := e.Header.ContentType()
	_, dispParams, _ := e.Header.ContentDisposition()
	filename := dispParams["filename"]
	if filename == "" {
		filename = ctParams["name"]
	}

	placeholder := fmt.Sprintf("Attachment removed: %s (%s, %d bytes)",
		filename, contentType, len(payload))

	h := copyHeader(e.Header)
	h.Del("Content-Disposition")
	h.Del("Content-Transfer-Encoding")
	h.SetContentType("text/plain", nil)

	return message.New(h, strings.NewReader(placeholder))
}

// copyHeader clones a header so a rebuilt tree never aliases the parsed
// original.
func copyHeader(h message.Header) message.Header {
	return h.Copy()
}

// textPart builds a leaf body part with the given media type.
func textPart(mediaType, body string) (*message.Entity, error) {
	var h message.Header
	h.SetContentType(mediaType, map[string]string{"charset": "utf-8"})
	part, err := message.New(h, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s part: %w", mediaType, err)
	}
	return part, nil
}

// newMessageID generates a unique Message-ID under the sender's domain.
func newMessageID(fromAddr string) string {
	domain := "localhost"
	if i := strings.LastIndex(fromAddr, "@"); i >= 0 && i+1 < len(fromAddr) {
		domain = fromAddr[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

// tolerable reports whether a parse error still yields a usable entity.
func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
