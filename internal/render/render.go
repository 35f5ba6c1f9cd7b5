// Package render prints console results. Markdown is styled with glamour
// when the output is a terminal and written as-is otherwise.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Printer writes Markdown to Out
type Printer struct {
	Out    io.Writer
	styled bool
}

// New returns a printer for out. Styling is on when out is a terminal.
func New(out io.Writer) *Printer {
	p := &Printer{Out: out}
	if f, ok := out.(*os.File); ok {
		p.styled = term.IsTerminal(int(f.Fd()))
	}
	return p
}

// Stdout is a printer for os.Stdout
func Stdout() *Printer { return New(os.Stdout) }

// Styled reports whether output is rendered with glamour
func (p *Printer) Styled() bool { return p.styled }

// Markdown renders md. Rendering failures fall back to the raw text.
func (p *Printer) Markdown(md string) error {
	if p.styled {
		if out, err := renderTerminal(md); err == nil {
			_, err = io.WriteString(p.Out, out)
			return err
		}
	}
	if !strings.HasSuffix(md, "\n") {
		md += "\n"
	}
	_, err := io.WriteString(p.Out, md)
	return err
}

// Printf writes a plain line
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.Out, format, args...)
}

func renderTerminal(md string) (string, error) {
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w - 4
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// Banner prints the tool name in colour on a terminal
func (p *Printer) Banner(name, version string) {
	if !p.styled {
		fmt.Fprintf(p.Out, "%s %s\n", name, version)
		return
	}
	profile := termenv.ColorProfile()
	title := termenv.String(name).Foreground(profile.Color("#818cf8")).Bold()
	ver := termenv.String(version).Foreground(profile.Color("#a78bfa"))
	fmt.Fprintf(p.Out, "%s %s\n", title, ver)
}

// Table formats rows as a Markdown table. Pipes inside cells are escaped.
func Table(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(escape(headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, r := range rows {
		b.WriteString("| " + strings.Join(escape(r), " | ") + " |\n")
	}
	return b.String()
}

func escape(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}
