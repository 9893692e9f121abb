package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
)

// flagsFirst reorders args so every flag token (and its value, unless the
// flag is boolean) comes before positional arguments, letting verbs accept
// `ta draft deny <id> --reason <r>` as readily as `ta draft deny --reason
// <r> <id>` despite flag.FlagSet stopping at the first non-flag token.
func flagsFirst(args []string, boolFlags map[string]bool) []string {
	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := strings.TrimSpace(args[i])
		if arg == "" {
			continue
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}
		flags = append(flags, arg)
		flagName := strings.TrimLeft(arg, "-")
		if idx := strings.Index(flagName, "="); idx != -1 {
			continue
		}
		if boolFlags[flagName] {
			continue
		}
		if i+1 < len(args) {
			next := strings.TrimSpace(args[i+1])
			if next != "" && !strings.HasPrefix(next, "-") {
				flags = append(flags, next)
				i++
			}
		}
	}
	return append(flags, positionals...)
}

// recordAudit writes a best-effort audit entry, warning rather than
// aborting the verb on failure (spec §7: audit writes never block a CLI
// action).
func recordAudit(ctx context, actorID, action, targetURI string, metadata map[string]string) {
	if _, err := ctx.AuditLog.Record(actorID, action, targetURI, metadata); err != nil {
		fmt.Fprintln(os.Stderr, style.Warn("audit write failed: "+err.Error()))
	}
}

// printJSON renders v as indented JSON to stdout for --format json verbs.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
