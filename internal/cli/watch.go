package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/ws"
)

var watchBackoff time.Duration

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <ws-url>",
	Short: "Follow a WebSocket feed and print every message",
	Long: `Watch connects to a TruthSeeker WebSocket endpoint and prints each
message on its own line. The connection is re-established after a fixed
delay whenever it drops.

Example:
  truthseeker watch ws://localhost:8001/ws/youtube-live
  truthseeker watch ws://localhost:8001/ws/my-session --backoff 5s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchBackoff, "backoff", ws.DefaultBackoff, "delay between reconnect attempts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	client := &ws.Client{
		URL:     args[0],
		Backoff: watchBackoff,
		Logger:  logger.Named("watch"),
		OnConnect: func(attempt int) {
			logger.Info("connected", zap.String("url", args[0]), zap.Int("attempt", attempt))
		},
		OnMessage: func(data []byte) {
			fmt.Fprintln(out, string(data))
		},
	}

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
