package monitoring

import (
	"fmt"
	"io"
	"strings"
)

// Progress rewrites a single terminal line as a stage advances, e.g.
//
//	generating snapshot images...    12.00 of [begin: 0 end: 600]
//
// A nil *Progress or a nil writer discards every call.
type Progress struct {
	w     io.Writer
	label string
	width int
}

// NewProgress starts a progress line for the named stage.
func NewProgress(w io.Writer, label string) *Progress {
	return &Progress{w: w, label: label}
}

// Update replaces the current line with the label followed by status.
func (p *Progress) Update(status string) {
	if p == nil || p.w == nil {
		return
	}
	line := p.label + "... " + status
	pad := ""
	if n := p.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	if len(line) > p.width {
		p.width = len(line)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
}

// Done finishes the line with "done." and a newline.
func (p *Progress) Done() {
	if p == nil || p.w == nil {
		return
	}
	p.Update("done.")
	fmt.Fprintln(p.w)
}
