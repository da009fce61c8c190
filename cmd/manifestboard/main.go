package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Exit status 130 follows the shell convention for an interrupted command.
const exitInterrupted = 130

func main() {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		os.Exit(exitInterrupted)
	default:
		fmt.Fprintln(os.Stderr, "manifestboard:", err)
		os.Exit(1)
	}
}
