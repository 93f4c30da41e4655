// Package main provides the entry point for the visual bag-of-words
// classifier: build a vocabulary, train a classifier, or evaluate one.
//
// Usage:
//
//	visual-bow -v <image_dir> [-o vocab_out]
//	visual-bow -t <training_dir> -r <vocab> -d <dictionary_out> [-o classifier_out]
//	visual-bow -e <evaluating_dir> -r <vocab> -c <classifier> -d <dictionary>
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"visual-bow/internal/cli"
	"visual-bow/internal/cli/native"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr, native.Factories())
	stop()
	os.Exit(code)
}
