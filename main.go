// ./main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/formcheck/cmd"
	"github.com/xkilldash9x/formcheck/internal/observability"
)

const panicLogFile = "panic.log"

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitError  = 2
)

var (
	osWriteFile = os.WriteFile
	// Allows mocking os.Exit in tests.
	osExit  = os.Exit
	execute = cmd.Execute
)

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := exitCode(execute(ctx))
	stop()
	osExit(code)
}

// exitCode maps a command error to the process status. An interrupted run
// counts as an error since it has no verdict.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, cmd.ErrTestsFailed):
		return exitFailed
	default:
		return exitError
	}
}

// handlePanic writes the stack of an unrecovered panic to panic.log and exits.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(exitError)
		return
	}
	fmt.Fprintf(os.Stderr, "formcheck crashed. Details logged to %s\n", panicLogFile)
	osExit(exitError)
}
