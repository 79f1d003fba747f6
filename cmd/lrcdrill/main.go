// Lrcdrill builds language-learning audio tracks from a song recording and
// its LRC transcript: every line is played, spoken in the target language,
// and played again.
//
// Usage:
//
//	lrcdrill build --audio song.mp3 --lrc song.lrc [--lang ja-JP] [--repeat 2]
//	lrcdrill parse song.lrc
//	lrcdrill serve --config /path/to/lrcdrill.yaml
//
// @title       lrcdrill job API
// @version     1.0
// @description Builds language-learning tracks from a recording and its LRC transcript.
// @BasePath    /
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	// Root context with signal handling so a run can clean up its workspace.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
