package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chargelens/backend/libs/httpclient"
	"chargelens/backend/libs/logging"
	"chargelens/backend/services/telemetry-service/internal/replay"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8084", "telemetry service base URL")
	input := flag.String("file", "-", "JSON lines input file, - for stdin")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var in io.Reader = os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Fatal("failed to open input", zap.String("file", *input), zap.Error(err))
		}
		defer f.Close()
		in = f
	}

	client := httpclient.NewBaseClient(*baseURL, httpclient.NewDefaultHTTPClient(*timeout))
	sum, err := replay.New(client, logger).Run(ctx, in)
	logger.Info("replay finished",
		zap.Int("readings", sum.Readings),
		zap.Int("mappings", sum.Mappings),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", len(sum.Failures)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay aborted:", err)
		os.Exit(1)
	}
	if sum.Failed() {
		for _, f := range sum.Failures {
			fmt.Fprintln(os.Stderr, f.Error())
		}
		os.Exit(1)
	}
}
