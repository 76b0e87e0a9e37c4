package html

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Writer accumulates HTML output and keeps the first write error, so views
// can be written as a flat sequence of calls.
type Writer struct {
	w   io.Writer
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup.
func (p *Writer) Raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// Text writes s escaped.
func (p *Writer) Text(s string) {
	p.Raw(templ.EscapeString(s))
}

// Printf formats trusted markup with every argument escaped.
func (p *Writer) Printf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = templ.EscapeString(fmt.Sprint(a))
	}
	p.Raw(fmt.Sprintf(format, escaped...))
}

// Component renders c in place.
func (p *Writer) Component(ctx context.Context, c templ.Component) {
	if p.err != nil || c == nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}

func (p *Writer) Err() error {
	return p.err
}

// View adapts a writer-based render function into a templ component.
func View(fn func(ctx context.Context, p *Writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := NewWriter(w)
		fn(ctx, p)
		return p.Err()
	})
}
