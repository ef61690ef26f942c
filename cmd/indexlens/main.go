package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if isDataUnavailable(err) {
			fmt.Fprintln(os.Stderr, "hint: the server is not collecting the statistics indexlens needs; see the error above for the setting to change")
		}
		os.Exit(1)
	}
}
