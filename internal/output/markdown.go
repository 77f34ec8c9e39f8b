package output

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// Markdown renders markdown for the terminal, falling back to the raw text
// when rendering fails or output is piped.
func Markdown(md string) string {
	if !IsTTY() {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(Width()),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// PrintMarkdown renders and prints markdown.
func PrintMarkdown(md string) {
	fmt.Print(Markdown(md))
}
