// Command ta is the Trusted Autonomy CLI: the mediation boundary between
// autonomous agents and a workspace, wrapping the goal/draft/release
// lifecycle (spec §6) over the core packages under internal/.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Println("ta " + version)
	case "help", "-h", "--help":
		usage()
	case "goal":
		cmdGoal(args)
	case "draft":
		cmdDraft(args)
	case "release":
		cmdRelease(args)
	case "drift":
		cmdDrift(args)
	default:
		printUnknown(cmd)
		usage()
		os.Exit(1)
	}
}
