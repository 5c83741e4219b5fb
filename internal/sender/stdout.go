package sender

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Stdout prints raw messages to standard output instead of sending them.
// It is the development backend: every composed reply can be inspected
// without SES credentials.
type Stdout struct {
	writer io.Writer
}

// NewStdout creates a Stdout sender that writes to os.Stdout.
func NewStdout() *Stdout {
	return &Stdout{writer: os.Stdout}
}

// NewStdoutWithWriter creates a Stdout sender that writes to the given
// writer. This is useful for testing.
func NewStdoutWithWriter(w io.Writer) *Stdout {
	return &Stdout{writer: w}
}

// SendRaw prints the raw message between separator lines. It always
// returns nil.
func (s *Stdout) SendRaw(_ context.Context, raw []byte) error {
	fmt.Fprintln(s.writer, "========================================")
	s.writer.Write(raw)
	fmt.Fprintln(s.writer, "\n========================================")
	return nil
}

// Name returns the sender name.
func (s *Stdout) Name() string {
	return "stdout"
}
