package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/config"
	"github.com/xxxsen/ytqa/internal/handler"
	"github.com/xxxsen/ytqa/internal/job"
	"github.com/xxxsen/ytqa/internal/middleware"
	appErr "github.com/xxxsen/ytqa/internal/pkg/errors"
	"github.com/xxxsen/ytqa/internal/schedule"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "ytqa",
		Short:        "ask questions about a youtube video",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	withApp := func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logutil.GetLogger(ctx).Debug("config loaded", zap.String("config", configPath))
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(ctx, a, args)
		}
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http api and background jobs",
		RunE:  withApp(runServer),
	}

	var videoURL string
	loadCmd := &cobra.Command{
		Use:   "load <video-url|file.vtt>",
		Short: "load a video transcript",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			sess, err := a.sessions.Load(ctx, args[0], videoURL)
			if err != nil {
				return err
			}
			color.Green("loaded %s: %d chunks", displayVideo(sess.VideoURL, args[0]), sess.ChunkCount)
			if sess.CacheID != "" {
				color.Green("provider cache %s until %s", sess.CacheID, time.Unix(sess.CacheExpiresAt, 0).Format(time.RFC3339))
			}
			return nil
		}),
	}
	loadCmd.Flags().StringVar(&videoURL, "video", "", "video url a local subtitle file belongs to")

	var interconnected bool
	var questionFile string
	askCmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "ask one or more questions about the loaded video",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			return ask(ctx, a, args, questionFile, interconnected)
		}),
	}
	askCmd.Flags().BoolVar(&interconnected, "interconnected", false, "answer in order, feeding earlier answers into later prompts")
	askCmd.Flags().StringVar(&questionFile, "file", "", "read questions from a file, one per line")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "show answered questions",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			printHistory(os.Stdout, a.cache.History.List())
			return nil
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "clear transcript, history and provider cache",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if err := a.sessions.Clear(ctx); err != nil {
				return err
			}
			color.Green("cache cleared")
			return nil
		}),
	}

	rootCmd.AddCommand(runCmd, loadCmd, askCmd, historyCmd, clearCmd)
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func displayVideo(videoURL, source string) string {
	if videoURL != "" {
		return videoURL
	}
	return source
}

func ask(ctx context.Context, a *app, args []string, questionFile string, interconnected bool) error {
	questions := make([]string, 0, len(args))
	for i, q := range args {
		q = strings.TrimSpace(q)
		if q == "" {
			return fmt.Errorf("question %d is blank", i+1)
		}
		questions = append(questions, q)
	}
	if questionFile != "" {
		f, err := os.Open(questionFile)
		if err != nil {
			return fmt.Errorf("open question file: %w", err)
		}
		fromFile, err := readQuestions(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("read question file: %w", err)
		}
		questions = append(questions, fromFile...)
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions given")
	}
	sess, err := a.sessions.Current(ctx)
	if err != nil {
		if errors.Is(err, appErr.ErrNoSession) || errors.Is(err, appErr.ErrNoTranscript) {
			return fmt.Errorf("no video loaded, run `ytqa load <url>` first")
		}
		return err
	}
	bar := newProgressBar(os.Stderr)
	run := a.qa.RunBatch
	if interconnected {
		run = a.qa.RunInterconnected
	}
	results := run(ctx, sess, questions, bar.Update)
	for i, r := range results {
		printResult(os.Stdout, i, r)
	}
	runID := uuid.NewString()
	keys, err := a.results.Save(ctx, runID, results)
	if err != nil {
		logutil.GetLogger(ctx).Warn("save results failed", zap.String("run_id", runID), zap.Error(err))
		return nil
	}
	for _, key := range keys {
		dimColor.Fprintf(os.Stdout, "saved %s\n", a.results.URL(key))
	}
	return nil
}

func runServer(ctx context.Context, a *app, args []string) error {
	cfg := a.cfg
	logger := logutil.GetLogger(ctx)
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("cache_dir", cfg.CacheDir),
		zap.String("file_store", cfg.FileStore.Type),
	)

	scheduler := schedule.NewCronScheduler()
	specs := map[schedule.Job]string{
		job.NewProviderCacheRefreshJob(a.sessions):            cfg.Schedule.CacheRefreshSpec,
		job.NewHistoryEmbeddingJob(a.cache.History, a.ranker): cfg.Schedule.HistoryEmbeddingSpec,
	}
	if a.embedRepo != nil {
		specs[job.NewEmbeddingCacheCleanupJob(a.embedRepo, cfg.EmbeddingCache.MaxAgeDays)] = cfg.Schedule.EmbeddingCleanSpec
	}
	for j, spec := range specs {
		if err := scheduler.AddJob(j, spec); err != nil {
			return fmt.Errorf("schedule %s: %w", j.Name(), err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Sessions:     handler.NewSessionHandler(a.sessions),
		Questions:    handler.NewQuestionHandler(a.sessions, a.qa, a.cache.History, a.cache.Transcripts, a.results, cfg.Retrieval.ContextChars),
		LoadInterval: 5 * time.Second,
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("server stopping...")
	return nil
}
