// Command deepresearch answers a research question from the command line:
//
//	deepresearch "What are the latest developments in quantum computing?"
//
// Configuration is taken from the environment (ANTHROPIC_API_KEY or
// OPENAI_API_KEY, optional TAVILY_API_KEY for web search; see package config).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hupe1980/deepresearch"
	"github.com/hupe1980/deepresearch/config"
	"github.com/hupe1980/deepresearch/logging"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: deepresearch <research question>")
		os.Exit(2)
	}
	query := strings.Join(os.Args[1:], " ")

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewSlogLogger(os.Stderr, slog.LevelInfo, "text")
	if cfg.TavilyAPIKey == "" {
		logger.Warn("TAVILY_API_KEY not set, web search will be unavailable")
	}

	svc, err := deepresearch.New(cfg, func(o *deepresearch.Options) {
		o.Logger = logger
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(svc.Run(ctx, query))
}
