package main

import (
	"fmt"
	"os"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
)

func usage() {
	fmt.Print(`ta [command] [args]

Mediated CLI for agent-authored changes: every edit an agent makes lands
in an overlay staging directory first, is bundled into a reviewable draft,
and only touches the real source tree once a human (or policy) approves
an apply.

Usage:
  ta goal start <title> [--source <dir>] [--objective <text>|--objective-file <path>] [--agent <id>] [--phase <p>] [--follow-up <id>] [--profile <alignment.yaml>] [--manifest-ttl <dur>]
  ta goal list [--state <s>]
  ta goal status <id>
  ta goal delete <id>
  ta draft build [<goal>|--latest] [--summary <text>]
  ta draft list [--goal <id>] [--stale]
  ta draft view <id> [--detail top|medium|full] [--file <p>] [--format terminal|markdown|json|html]
  ta draft approve <id> [--reviewer <who>]
  ta draft deny <id> --reason <r>
  ta draft apply <id> [--target <d>] [--conflict-resolution abort|force-overwrite|merge] [--approve <pat>]... [--reject <pat>]... [--discuss <pat>]... [--submit]
  ta draft amend <id> <uri> {--file <p>|--drop} [--reason <r>] [--amended-by <who>]
  ta draft fix <id> [<uri>] --guidance <text> [--agent <id>] [--no-launch]
  ta draft review start <draft-id> [--reviewer <who>]
  ta draft review comment <session-id> <uri> --body <text> [--author <who>]
  ta draft review next <session-id>
  ta draft review finish <session-id>
  ta draft review list [--draft <id>]
  ta draft review show <session-id>
  ta draft close <id>
  ta draft gc [--dry-run] [--archive]
  ta release run <version> [--from-step N] [--pipeline <path>] [--dry-run] [--tag <t>] [--commits <text>] [--last-tag <t>] [--auto-approve]
  ta release show
  ta release init
  ta drift baseline <agent-id>
  ta drift report <agent-id> [--recent N]
  ta help | -h | --help
  ta version | --version | -v
`)
}

func printUsage(line string) {
	fmt.Println(style.Usage(line))
}

func printUnknown(cmd string) {
	fmt.Fprintln(os.Stderr, style.Error("unknown command:")+" "+style.Cmd(cmd))
}
