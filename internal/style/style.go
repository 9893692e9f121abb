// Package style provides ANSI terminal styling and TTY detection for the
// CLI, shared across every ta subcommand's human-readable output.
package style

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

var enabled = detect()

func detect() bool {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" || strings.TrimSpace(os.Getenv("TA_NO_COLOR")) != "" {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("TERM")), "dumb") {
		return false
	}
	if force := strings.TrimSpace(os.Getenv("TA_COLOR")); force != "" {
		return force == "1" || strings.EqualFold(force, "true")
	}
	if force := strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")); force != "" && force != "0" {
		return true
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Interactive reports whether stdin is an interactive terminal, used by the
// Terminal review channel to cancel prompts it cannot show.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func ansi(codes ...string) string {
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

func colorize(s string, codes ...string) string {
	if !enabled || s == "" {
		return s
	}
	return ansi(codes...) + s + ansi("0")
}

func Heading(s string) string { return colorize(s, "1", "36") }
func Section(s string) string { return colorize(s, "1", "34") }
func Cmd(s string) string     { return colorize(s, "1", "32") }
func Flag(s string) string    { return colorize(s, "33") }
func Arg(s string) string     { return colorize(s, "35") }
func Dim(s string) string     { return colorize(s, "90") }
func Info(s string) string    { return colorize(s, "36") }
func Success(s string) string { return colorize(s, "32") }
func Warn(s string) string    { return colorize(s, "33") }
func Error(s string) string   { return colorize(s, "31") }
func Usage(s string) string   { return colorize(s, "1", "33") }

// Status colors common state words consistently across `goal status`,
// `draft view`, and drift reports.
func Status(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running", "applied", "approved", "ok", "allow", "normal", "completed":
		return Success(s)
	case "pendingreview", "pending", "warn", "warning", "underreview", "configured", "created", "requireapproval":
		return Warn(s)
	case "denied", "deny", "failed", "error", "alert", "closed", "superseded":
		return Error(s)
	default:
		return Info(s)
	}
}

func Warnf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, Warn("warning:")+" "+fmt.Sprintf(format, args...))
}

func Infof(format string, args ...interface{}) {
	fmt.Println(Info(fmt.Sprintf(format, args...)))
}

func Successf(format string, args ...interface{}) {
	fmt.Println(Success(fmt.Sprintf(format, args...)))
}

func Errorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, Error("error:")+" "+fmt.Sprintf(format, args...))
}
