// Package event validates inbound mail-receipt events and extracts the
// fields the responder needs from them.
package event

import (
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// SourceSES marks records produced by the SES inbound-mail receipt rule.
// Records from any other source are ignored.
const SourceSES = "aws:ses"

// ErrMalformedEvent is returned when a record lacks a required field.
var ErrMalformedEvent = errors.New("malformed inbound mail event")

// Notification is the validated view of one inbound-mail record.
type Notification struct {
	// Subject is the inbound message's subject line.
	Subject string
	// MessageID keys the raw message blob in storage.
	MessageID string
	// ReturnPath is the diary author's address, used to attribute
	// durably logged entries. It may be empty: only log mode needs it,
	// so the handler validates it there rather than here.
	ReturnPath string
}

// InboundRecords filters an event down to the records that are inbound
// mail notifications.
func InboundRecords(e events.SimpleEmailEvent) []events.SimpleEmailRecord {
	var records []events.SimpleEmailRecord
	for _, r := range e.Records {
		if r.EventSource == SourceSES {
			records = append(records, r)
		}
	}
	return records
}

// FromRecord extracts and validates the notification fields of one
// record. It fails fast on missing fields instead of letting empty values
// propagate into the pipeline. ReturnPath is passed through unchecked
// since not every pipeline configuration uses it.
func FromRecord(r events.SimpleEmailRecord) (Notification, error) {
	n := Notification{
		Subject:    r.SES.Mail.CommonHeaders.Subject,
		MessageID:  r.SES.Mail.MessageID,
		ReturnPath: r.SES.Mail.CommonHeaders.ReturnPath,
	}

	if n.MessageID == "" {
		return Notification{}, fmt.Errorf("%w: missing messageId", ErrMalformedEvent)
	}
	if n.Subject == "" {
		return Notification{}, fmt.Errorf("%w: missing subject", ErrMalformedEvent)
	}

	return n, nil
}
