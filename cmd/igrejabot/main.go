package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/api"
	"github.com/Kerhoff/IgrejaBoT/internal/config"
	"github.com/Kerhoff/IgrejaBoT/internal/handlers"
	"github.com/Kerhoff/IgrejaBoT/internal/metrics"
	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository/postgres"
	"github.com/Kerhoff/IgrejaBoT/internal/service"
	"github.com/Kerhoff/IgrejaBoT/internal/telegram"
	"github.com/Kerhoff/IgrejaBoT/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting IgrejaBoT...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, cfg.DB, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	m := metrics.New()

	// Service layer
	svc := service.New(l, postgres.NewTxManager(db.DB),
		postgres.NewMemberRepository(db.DB),
		postgres.NewGroupRepository(db.DB),
		postgres.NewMembershipRepository(db.DB),
		postgres.NewSessionRepository(db.DB),
		postgres.NewClassRepository(db.DB),
		service.Options{
			PublicBaseURL: cfg.PublicBaseURL,
			Metrics:       m,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telegram bot
	var bot *telegram.Bot
	if cfg.BotEnabled() {
		bot, err = telegram.NewBot(cfg.TelegramToken, l)
		if err != nil {
			l.Fatalf("Failed to create Telegram bot: %v", err)
		}

		bot.RegisterCommand("start", handlers.NewStartHandler(l))
		bot.RegisterCommand("help", handlers.NewHelpHandler(l))
		bot.RegisterCommand("grupos", handlers.NewGroupsHandler(svc, l))
		bot.RegisterCommand("grupo", handlers.NewGroupHandler(svc, l))
		bot.RegisterCommand("proximo", handlers.NewNextMeetingHandler(svc, l))
		bot.RegisterCommand("vincular", handlers.NewLinkHandler(svc, l))
		bot.RegisterCommand("desvincular", handlers.NewUnlinkHandler(svc, l))

		svc.SetMessageSender(bot)

		go func() {
			if err := bot.Start(ctx); err != nil {
				l.Errorf("Bot error: %v", err)
			}
		}()
	} else {
		l.Warn("TELEGRAM_TOKEN is not set, Telegram bot disabled")
	}

	// Class watcher
	watcher := svc.NewClassWatcher(cfg.ClassPollInterval, registrationNotifier(bot, cfg.TelegramAdminChatID, l))
	go watcher.Run(ctx)

	// HTTP servers
	apiServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           api.NewServer(svc, l).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", m.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.PrometheusPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	for name, srv := range map[string]*http.Server{"api": apiServer, "metrics": metricsServer} {
		go func() {
			l.WithFields(logrus.Fields{"server": name, "addr": srv.Addr}).Info("HTTP server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.WithError(err).WithField("server", name).Error("HTTP server error")
				stop()
			}
		}()
	}

	l.Info("IgrejaBoT started successfully")

	<-ctx.Done()
	l.Info("Received shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range []*http.Server{apiServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.WithError(err).Warn("HTTP server shutdown")
		}
	}

	l.Info("IgrejaBoT stopped")
}

// registrationNotifier tells the admin chat about students who joined a class
// through its invite link. Without a bot or admin chat nothing is sent.
func registrationNotifier(bot *telegram.Bot, adminChatID int64, l *logrus.Logger) service.RegistrationCallback {
	return func(class *models.NewMemberClass, students []models.Member) {
		if bot == nil || adminChatID == 0 {
			return
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "🆕 Novas inscrições na turma %s:\n", class.Name)
		for _, s := range students {
			sb.WriteString("• " + s.Name)
			if contact := strings.TrimSpace(s.Email + " " + s.Phone); contact != "" {
				sb.WriteString(" (" + contact + ")")
			}
			sb.WriteString("\n")
		}

		if err := bot.SendMessage(adminChatID, sb.String()); err != nil {
			l.WithError(err).WithField("class_id", class.ID).Error("Failed to notify registrations")
		}
	}
}
