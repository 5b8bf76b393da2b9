package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/factcheck"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/pipeline"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/server"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/store"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/transcription"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/util"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/ws"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/youtube"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST and WebSocket API",
	Long: `Serve starts the TruthSeeker backend:
- POST /api/fact-check and /api/transcription for browser clients
- /ws/{session_id} for live transcripts and verdicts
- /api/youtube/* and /ws/youtube-live for YouTube fact-checking

Example:
  truthseeker serve
  truthseeker serve --addr :9000 --store memory`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8001", "listen address")
	serveCmd.Flags().String("store", "mongo", "document store (mongo, memory)")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.store", serveCmd.Flags().Lookup("store"))
}

func runServe(cmd *cobra.Command, args []string) error {
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

	checker, err := factcheck.New(ctx, cfg, logger.Named("factcheck"))
	if err != nil {
		return err
	}

	st, err := store.New(ctx, cfg, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}()

	hub := ws.NewHub(logger.Named("ws"))
	pipe := pipeline.NewPipeline(checker, st, hub, logger.Named("pipeline"))

	transcriber := transcription.New(cfg.Transcription,
		util.NewHTTPClient(cfg.HTTP, cfg.Transcription.Timeout), logger.Named("transcription"))

	fetcher := util.NewFetcher(util.NewHTTPClient(cfg.HTTP, cfg.YouTube.MetadataTimeout), cfg.HTTP.UserAgent, 0).
		WithRetryBackoff(cfg.HTTP.RetryBackoff)
	processor := youtube.NewProcessor(youtube.Options{
		Store:       st,
		Checker:     checker,
		Transcriber: transcriber,
		Metadata:    youtube.NewMetadataSource(cfg.YouTube, fetcher, youtube.ExecRunner, logger.Named("youtube")),
		Audio:       youtube.NewAudioExtractor(cfg.YouTube, youtube.ExecRunner),
		Publisher:   hub,
		Config:      cfg.YouTube,
		Logger:      logger.Named("youtube"),
	})

	srv := server.NewServer(cfg.Server, server.Deps{
		Pipeline:         pipe,
		Checker:          checker,
		Store:            st,
		Processor:        processor,
		Hub:              hub,
		OpenAIConfigured: cfg.Transcription.APIKey != "",
	}, logger.Named("server"))

	logger.Info("starting TruthSeeker",
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", cfg.Server.Store),
		zap.String("provider", checker.ProviderName()))

	return srv.ListenAndServe(ctx)
}
