// Package globmatch implements the single glob dialect shared by the
// Policy Engine, Access Constitution, selective-approval patterns, and
// summary-exemption patterns (spec §6): literal-separator glob matching
// with bare patterns auto-anchored under fs://workspace/.
package globmatch

import (
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

const workspaceScheme = "fs://workspace/"

// Anchor prefixes a bare (schemeless) pattern with the workspace URI scheme,
// leaving already-anchored patterns untouched.
func Anchor(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if strings.Contains(pattern, "://") {
		return pattern
	}
	return workspaceScheme + strings.TrimPrefix(pattern, "/")
}

var (
	cacheMu sync.Mutex
	cache   = map[string]glob.Glob{}
)

// Match reports whether uri matches pattern under literal-separator glob
// semantics ('/' is never crossed by '*'; '**' crosses it). Invalid
// patterns fail closed — they never match anything.
func Match(pattern, uri string) bool {
	compiled, ok := compile(pattern)
	if !ok {
		return false
	}
	return compiled.Match(uri)
}

// MatchAny reports whether uri matches at least one pattern.
func MatchAny(patterns []string, uri string) bool {
	for _, p := range patterns {
		if Match(p, uri) {
			return true
		}
	}
	return false
}

func compile(pattern string) (glob.Glob, bool) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if g, ok := cache[pattern]; ok {
		return g, g != nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		cache[pattern] = nil
		return nil, false
	}
	cache[pattern] = g
	return g, true
}
