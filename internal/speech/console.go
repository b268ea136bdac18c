package speech

import (
	"context"
	"fmt"
	"io"
)

// ConsoleSynthesizer is the text-only stand-in used when no speech backend
// is configured: it "plays" a segment by writing it to Out.
type ConsoleSynthesizer struct {
	Out io.Writer
}

func NewConsoleSynthesizer(out io.Writer) *ConsoleSynthesizer {
	return &ConsoleSynthesizer{Out: out}
}

func (c *ConsoleSynthesizer) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.Out, "🔊 %s\n", text)
	return err
}

// Stop is a no-op: console output completes instantly.
func (c *ConsoleSynthesizer) Stop() {}
