package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	os.Exit(run(context.Background(), os.Args[1:], DefaultEnv()))
}

// run dispatches to a command and returns the process exit code.
// An argument that is not a command name starts a conversion.
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	switch args[0] {
	case "convert":
		return runConvertCmd(ctx, args[1:], env)
	case "doctor":
		return runDoctorCmd(args[1:], env)
	case "config":
		return runConfigCmd(args[1:], env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "invoice2pdf %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		return runHelp(args[1:], env)
	default:
		return runConvertCmd(ctx, args, env)
	}
}
