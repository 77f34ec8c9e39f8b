// Package output renders CLI results: styled tables and trees on a
// terminal, plain text when piped.
package output

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	Primary = lipgloss.Color("212")
	Error   = lipgloss.Color("196")
	Warning = lipgloss.Color("214")
	Info    = lipgloss.Color("45")
	Success = lipgloss.Color("42")
	Muted   = lipgloss.Color("241")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(Info)
	errorStyle   = lipgloss.NewStyle().Foreground(Error)
	warnStyle    = lipgloss.NewStyle().Foreground(Warning)
	successStyle = lipgloss.NewStyle().Foreground(Success)
	mutedStyle   = lipgloss.NewStyle().Foreground(Muted)
)

// IsTTY reports whether stdout is a terminal. Styling and markdown
// rendering switch off when output is piped.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width returns the terminal width, or 80 when stdout is not a terminal.
func Width() int {
	if !IsTTY() {
		return 80
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// Title prints a styled section title.
func Title(s string) {
	if IsTTY() {
		fmt.Println(titleStyle.Render(s))
		return
	}
	fmt.Println(s)
}

// Errorf prints an error line to stderr.
func Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+msg))
		return
	}
	fmt.Fprintln(os.Stderr, "error: "+msg)
}

// Warnf prints a warning line.
func Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if IsTTY() {
		fmt.Println(warnStyle.Render(msg))
		return
	}
	fmt.Println(msg)
}

// Successf prints a confirmation line.
func Successf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if IsTTY() {
		fmt.Println(successStyle.Render(msg))
		return
	}
	fmt.Println(msg)
}

// Mutedf prints secondary detail.
func Mutedf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if IsTTY() {
		fmt.Println(mutedStyle.Render(msg))
		return
	}
	fmt.Println(msg)
}
