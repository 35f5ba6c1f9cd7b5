package render

import (
	"bytes"
	"testing"
)

func TestMarkdownPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	if p.Styled() {
		t.Fatal("a buffer is not a terminal")
	}
	if err := p.Markdown("# Title"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "# Title\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestBannerPlain(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Banner("toolbelt", "1.0")
	if buf.String() != "toolbelt 1.0\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestTable(t *testing.T) {
	got := Table([]string{"a", "b"}, [][]string{{"x|y", "line\nbreak"}})
	want := "| a | b |\n| --- | --- |\n| x\\|y | line break |\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
