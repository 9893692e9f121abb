package reviewchannel

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
)

// Terminal is the interactive y/n + free-text variant, grounded on the
// teacher's confirmYN/promptLine idiom.
type Terminal struct {
	In  *bufio.Reader
	Out *os.File
}

// NewTerminal returns a Terminal channel reading from stdin and writing to
// stdout.
func NewTerminal() *Terminal {
	return &Terminal{In: bufio.NewReader(os.Stdin), Out: os.Stdout}
}

func (t *Terminal) RequestInteraction(i Interaction) (Response, error) {
	if !style.Interactive() {
		return Response{Cancelled: true}, nil
	}
	if i.FreeText {
		fmt.Fprintf(t.Out, "%s: ", strings.TrimSpace(i.Prompt))
		line, err := t.In.ReadString('\n')
		if err != nil && line == "" {
			return Response{Cancelled: true}, err
		}
		return Response{Text: strings.TrimSpace(line)}, nil
	}

	def := "N"
	if i.DefaultYes {
		def = "Y"
	}
	for {
		fmt.Fprintf(t.Out, "%s [y/%s]: ", strings.TrimSpace(i.Prompt), def)
		line, err := t.In.ReadString('\n')
		if err != nil && line == "" {
			return Response{Cancelled: true}, err
		}
		if isEscCancel(line) {
			return Response{Cancelled: true}, nil
		}
		line = strings.TrimSpace(strings.ToLower(line))
		switch line {
		case "":
			return Response{Confirmed: i.DefaultYes}, nil
		case "y", "yes":
			return Response{Confirmed: true}, nil
		case "n", "no":
			return Response{Confirmed: false}, nil
		default:
			fmt.Fprintln(t.Out, style.Dim("please answer y or n (Esc to cancel)"))
		}
	}
}

func (t *Terminal) Notify(message string) {
	fmt.Fprintln(t.Out, message)
}

func isEscCancel(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "\x1b" || strings.ContainsRune(line, '\x1b')
}

// AutoApprove is the non-interactive variant used by `release run
// --auto-approve`/`--dry-run` and tests: every interaction is confirmed
// per its default.
type AutoApprove struct {
	Notices []string
}

func (a *AutoApprove) RequestInteraction(i Interaction) (Response, error) {
	return Response{Confirmed: i.DefaultYes}, nil
}

func (a *AutoApprove) Notify(message string) {
	a.Notices = append(a.Notices, message)
}
