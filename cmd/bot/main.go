// Command bot runs the standup report bot: the Telegram webhook server, the
// broadcast scheduler, and the manager-facing admin API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/Schankelqt/meetings-dify-bot/internal/chat"
	"github.com/Schankelqt/meetings-dify-bot/internal/config"
	httpapi "github.com/Schankelqt/meetings-dify-bot/internal/http"
	"github.com/Schankelqt/meetings-dify-bot/internal/observability"
	"github.com/Schankelqt/meetings-dify-bot/internal/repo"
	"github.com/Schankelqt/meetings-dify-bot/internal/scheduler"
	"github.com/Schankelqt/meetings-dify-bot/internal/services"
	"github.com/Schankelqt/meetings-dify-bot/internal/storage"
	"github.com/Schankelqt/meetings-dify-bot/internal/sysutil"
	"github.com/Schankelqt/meetings-dify-bot/internal/telegram"
	"github.com/Schankelqt/meetings-dify-bot/internal/tracker"
)

const version = "1.0.0"

func main() {
	// .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	teams, err := config.LoadTeams(cfg.TeamsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TeamsPath).Msg("roster load failed")
	}
	log.Info().Int("teams", len(teams.All())).Str("path", cfg.TeamsPath).Msg("roster loaded")

	// Summary store: relational, flat file, or none.
	var (
		db    *gorm.DB
		store services.SummaryStore
	)
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		db, err = repo.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Store.DBPath).Msg("sqlite open failed")
		}
		if cfg.OTEL.Enabled {
			if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
				log.Warn().Err(err).Msg("gorm tracing plugin failed")
			}
		}
		store = services.NewDBStore(db)
		log.Info().Str("path", cfg.Store.DBPath).Msg("sqlite summary store ready")
	case config.StoreFile:
		store = storage.NewFileStore(cfg.Store.FilePath)
		log.Info().Str("path", cfg.Store.FilePath).Msg("file summary store ready")
	default:
		log.Warn().Msg("summary store disabled; reports are relayed but not persisted")
	}

	backend := chat.New(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.Chat.Timeout)

	var mirror services.TaskTracker
	if cfg.Tracker.Enabled() {
		mirror = tracker.New(cfg.Tracker.BaseURL, cfg.Tracker.Token, cfg.Tracker.FormID, tracker.FieldIDs{
			ChatID:         cfg.Tracker.FieldChatID,
			FullName:       cfg.Tracker.FieldFullName,
			TeamID:         cfg.Tracker.FieldTeamID,
			ConversationID: cfg.Tracker.FieldConversationID,
			LastSummary:    cfg.Tracker.FieldLastSummary,
		}, cfg.Tracker.Timeout)
		log.Info().Int("form_id", cfg.Tracker.FormID).Msg("task tracker mirror enabled")
	} else {
		log.Warn().Msg("task tracker mirror disabled; set the TRACKER_* variables to enable it")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram auth failed")
	}
	log.Info().Str("bot", botAPI.Self.UserName).Msg("telegram bot authorized")
	notifier := telegram.NewNotifier(botAPI, cfg.Telegram.ChunkSize, cfg.Telegram.ChunkPause, log.Logger)

	reports := &services.ReportService{
		Backend:     backend,
		Store:       store,
		Tracker:     mirror,
		Matcher:     services.NewConfirmationMatcher(cfg.ConfirmationPhrases),
		Sessions:    services.NewConversationCache(),
		Teams:       teams,
		Marker:      cfg.SummaryMarker,
		AckText:     cfg.AckText,
		ApologyText: cfg.ApologyText,
		TurnTimeout: cfg.TurnTimeout,
		Log:         log.Logger,
	}
	digest := &services.DigestService{Store: store, Teams: teams, Log: log.Logger}

	loc, err := time.LoadLocation(cfg.ScheduleLocation)
	if err != nil {
		log.Fatal().Err(err).Str("location", cfg.ScheduleLocation).Msg("invalid schedule location")
	}
	sched := &scheduler.Scheduler{
		Teams:    teams,
		Digest:   digest,
		Notifier: notifier,
		Location: loc,
		Log:      log.Logger,
		Tick:     cfg.ScheduleTick,
	}
	go sched.Run(ctx)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Teams:    teams,
		Reports:  reports,
		Digest:   digest,
		Notifier: notifier,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
		os.Exit(1)
	}
	log.Info().Msg("bye")
}
