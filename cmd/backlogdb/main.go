// Command backlogdb manages the anime backlog graph from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd(openApp)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(exitCode(err))
	}
}

func printError(w io.Writer, err error) {
	if code := apperror.CodeOf(err); code != apperror.CodeUnknown {
		fmt.Fprintf(w, "Error [%s]: %v\n", code, err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindInvalidInput:
		return 2
	case apperror.KindNotFound:
		return 3
	case apperror.KindConflict:
		return 4
	case apperror.KindPreconditionUnmet:
		return 5
	default:
		return 1
	}
}
