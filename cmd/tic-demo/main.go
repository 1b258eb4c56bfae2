// Command tic-demo is a small operator-facing program that builds a
// Receiver[channel], starts a pool of producer goroutines, and runs until
// interrupted, exercising the Sender/Control/Receiver APIs the way a
// real caller would, in the cobra-subcommand style the teacher's own
// cmd/* binaries use.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nuclearfurnace/tic/interest"
	"github.com/nuclearfurnace/tic/receiver"
)

// channel is this demo's channel-key type: sample.Key requires comparable
// plus Stringer, so a plain string cannot instantiate Receiver directly.
type channel string

func (c channel) String() string { return string(c) }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tic-demo",
		Short: "run a tic Receiver against synthetic producer traffic",
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		httpListen string
		producers  int
		duration   int
		windows    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start a Receiver and synthetic producers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), httpListen, producers, duration, windows)
		},
	}

	cmd.Flags().StringVar(&httpListen, "http-listen", ":8080", "scrape endpoint listen address")
	cmd.Flags().IntVar(&producers, "producers", 4, "number of synthetic producer goroutines")
	cmd.Flags().IntVar(&duration, "duration", 1, "window length in seconds")
	cmd.Flags().IntVar(&windows, "windows", 60, "windows per run")

	return cmd
}

func runServe(ctx context.Context, httpListen string, producers, duration, windows int) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("tic-demo: build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	config := receiver.NewConfig(
		receiver.WithDuration(duration),
		receiver.WithWindows(windows),
		receiver.WithServiceMode(true),
		receiver.WithHTTPListen(httpListen),
		receiver.WithLogger(logger),
	)

	recv, err := receiver.New[channel](config)
	if err != nil {
		return fmt.Errorf("tic-demo: build receiver: %w", err)
	}

	recv.AddInterest(interest.Count[channel]("requests"))
	recv.AddInterest(interest.Percentile[channel]("requests"))
	recv.AddInterest(interest.AllanDeviation[channel]("requests"))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)
	for i := 0; i < producers; i++ {
		group.Go(func() error {
			return produce(groupCtx, recv)
		})
	}

	group.Go(func() error {
		return recv.Run()
	})

	<-runCtx.Done()
	return recv.Shutdown(context.Background())
}

// produce emits synthetic samples on the "requests" channel until ctx is
// cancelled, one of several producer goroutines feeding the same
// Receiver concurrently.
func produce(ctx context.Context, recv *receiver.Receiver[channel]) error {
	send := recv.GetSender()
	cs := recv.GetClocksource()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ctx.Done():
			send.Flush()
			return nil
		default:
		}

		start := cs.Counter()
		latency := time.Duration(rng.Intn(50)) * time.Millisecond
		stop := start + uint64(latency)
		send.Send("requests", start, stop, 1)

		time.Sleep(time.Millisecond)
	}
}
