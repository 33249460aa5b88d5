package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/davidmdi/moodbot/internal/config"
	"github.com/davidmdi/moodbot/internal/handler"
	"github.com/davidmdi/moodbot/internal/health"
	"github.com/davidmdi/moodbot/internal/report"
	"github.com/davidmdi/moodbot/internal/scheduler"
	"github.com/davidmdi/moodbot/internal/sheets"
	"github.com/davidmdi/moodbot/internal/storage"
	"github.com/davidmdi/moodbot/internal/tracker"
	"github.com/davidmdi/moodbot/internal/whatsapp"
)

func main() {
	fmt.Println("🙂 WhatsApp Mood Survey Bot")
	fmt.Println("===========================")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	loc := cfg.Location()
	ctx := context.Background()

	exclusions, err := storage.NewExclusions(cfg.Storage.ExclusionsFile, !cfg.Storage.EphemeralFS)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing exclusions")
	}
	if cfg.Storage.EphemeralFS {
		log.Warn().Msg("Ephemeral filesystem: exclusion changes are kept in memory only")
	}
	log.Info().Int("excluded", exclusions.Len()).Msg("Exclusions loaded")

	var records interface {
		handler.RecordSink
		report.RecordSource
	}
	store, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		Range:         cfg.Sheets.Range,
		Credentials: sheets.Credentials{
			JSON: cfg.Sheets.CredentialsJSON,
			File: cfg.Sheets.CredentialsFile,
		},
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("Spreadsheet storage disabled, responses will not be saved")
		records = sheets.Disabled{Cause: err}
	} else {
		records = store
	}

	whatsappService, err := whatsapp.NewService(&whatsapp.Config{DataDir: cfg.WhatsApp.DataDir}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing WhatsApp service")
	}

	admins := make([]string, 0, len(cfg.WhatsApp.AdminNumbers))
	for _, number := range cfg.WhatsApp.AdminNumbers {
		if id, ok := whatsapp.UserID(number); ok {
			admins = append(admins, id)
		}
	}

	reporter := report.NewEngine(records, whatsappService, cfg.WhatsApp.OpsChat, loc, log)
	surveyHandler := handler.NewSurveyHandler(whatsappService, tracker.New(log), exclusions, records, reporter, &handler.Config{
		CommunityGroup: cfg.WhatsApp.CommunityGroup,
		OpsChat:        cfg.WhatsApp.OpsChat,
		Admins:         admins,
		Location:       loc,
		ConfirmTimeout: handler.DefaultConfirmTimeout,
	}, log)

	whatsappService.SetMessageHandler(surveyHandler.HandleMessage)
	whatsappService.SetReactionHandler(surveyHandler.HandleReaction)

	gin.SetMode(gin.ReleaseMode)
	healthServer := health.NewServer(cfg.HealthAddr(), whatsappService, log)
	healthServer.Start()

	fmt.Println("Connecting to WhatsApp...")
	if err := whatsappService.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Error connecting to WhatsApp")
	}
	fmt.Println("\n✅ Connected to WhatsApp!")

	sched, err := scheduler.New(scheduler.Config{
		SurveySpec: cfg.Survey.SurveyCron,
		ReportSpec: cfg.Survey.ReportCron,
		Location:   loc,
	}, func(ctx context.Context) error {
		_, err := surveyHandler.Dispatch(ctx)
		return err
	}, func(ctx context.Context) error {
		_, err := reporter.Run(ctx)
		return err
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating scheduler")
	}
	surveyHandler.SetSchedule(sched)
	sched.Start()

	if cfg.Server.ConsoleEnabled {
		go startCLI(surveyHandler)
	}

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	fmt.Println("\n\nShutting down...")
	sched.Stop()
	surveyHandler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Health endpoint shutdown")
	}

	whatsappService.Disconnect()
	fmt.Println("Goodbye! 👋")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "json") {
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}).
		Level(level).With().Timestamp().Logger()
}

// startCLI reads admin commands from stdin, without the "!" prefix
func startCLI(surveyHandler *handler.SurveyHandler) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\nConsole ready. Type 'help' for commands, 'exit' to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Exiting...")
			if p, err := os.FindProcess(os.Getpid()); err == nil {
				_ = p.Signal(os.Interrupt)
			}
			return
		}

		if err := surveyHandler.RunConsoleCommand(context.Background(), line, os.Stdout); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
	}
}
