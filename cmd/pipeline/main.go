// Package main provides the pipeline binary that stages a docker-compose
// file for container-in-container use, brings the services up, records their
// runtime identity, and runs an up-test-down task tree against them.
//
// Usage:
//
//	pipeline <command> [flags]
//
// Commands:
//
//	stage    - Generate the anchored compose file next to the source
//	up       - Start services from the staged file and collect metadata
//	examine  - Inspect running containers and persist their facts
//	down     - Tear the services down
//	run      - Stage, then execute the full up-test-down tree locally
//	status   - Print a service's persisted lifecycle status
//	ip       - Print a service's persisted IP partition
//	inspect  - Print a service's persisted inspection record
//	version  - Show version
package main

import (
	"fmt"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess     = 0
	ExitConfigError = 1
	ExitStoreError  = 2
	ExitDockerError = 3
	ExitTaskError   = 4
	ExitUsageError  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pipeline <command> [flags]")
		return ExitUsageError
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "stage":
		return cmdStage(args)
	case "up":
		return cmdUp(args)
	case "examine":
		return cmdExamine(args)
	case "down":
		return cmdDown(args)
	case "run":
		return cmdRun(args)
	case "status":
		return cmdStatus(args)
	case "ip":
		return cmdIP(args)
	case "inspect":
		return cmdInspect(args)
	case "version":
		fmt.Printf("pipeline %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		return ExitUsageError
	}
}
