package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/davidmdi/moodbot/internal/scheduler"
)

// Config holds the application configuration
type Config struct {
	WhatsApp WhatsAppConfig
	Survey   SurveyConfig
	Sheets   SheetsConfig
	Storage  StorageConfig
	Server   ServerConfig
	Log      LogConfig
}

// WhatsAppConfig selects the session store and the chats the bot works with
type WhatsAppConfig struct {
	DataDir        string   `env:"WHATSAPP_DATA_DIR" env-default:"data"`
	CommunityGroup string   `env:"SURVEY_GROUP_JID"  env-required:"true"`
	OpsChat        string   `env:"OPS_CHAT_JID"      env-required:"true"`
	AdminNumbers   []string `env:"ADMIN_NUMBERS"     env-separator:","`
}

// SurveyConfig holds the schedules
type SurveyConfig struct {
	Timezone   string `env:"BOT_TIMEZONE" env-default:"America/Sao_Paulo"`
	SurveyCron string `env:"SURVEY_CRON"  env-default:"0 10 * * 1-5"`
	ReportCron string `env:"REPORT_CRON"  env-default:"0 18 * * 5"`
}

// SheetsConfig locates the spreadsheet and its service account
type SheetsConfig struct {
	SpreadsheetID   string `env:"SPREADSHEET_ID"`
	Range           string `env:"SHEET_RANGE"             env-default:"A:E"`
	CredentialsJSON string `env:"GOOGLE_CREDENTIALS"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" env-default:"credentials.json"`
}

// StorageConfig holds the exclusion list location
type StorageConfig struct {
	ExclusionsFile string `env:"EXCLUSIONS_FILE" env-default:"data/excluded_users.txt"`
	// EphemeralFS disables writing the exclusion list on hosts whose disk is reset on deploy
	EphemeralFS bool `env:"EPHEMERAL_FS" env-default:"false"`
}

// ServerConfig holds the liveness endpoint and operator console settings
type ServerConfig struct {
	Port           string `env:"PORT"            env-default:"8080"`
	ConsoleEnabled bool   `env:"CONSOLE_ENABLED" env-default:"true"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"console"`
}

// LoadConfig loads a .env file when present, then reads the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks values the bot cannot start without
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.WhatsApp.CommunityGroup) == "" {
		errs = append(errs, errors.New("SURVEY_GROUP_JID is required"))
	}
	if strings.TrimSpace(c.WhatsApp.OpsChat) == "" {
		errs = append(errs, errors.New("OPS_CHAT_JID is required"))
	}
	if _, err := time.LoadLocation(c.Survey.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("BOT_TIMEZONE: %w", err))
	}
	if err := scheduler.ValidateSpec(c.Survey.SurveyCron); err != nil {
		errs = append(errs, fmt.Errorf("SURVEY_CRON: %w", err))
	}
	if err := scheduler.ValidateSpec(c.Survey.ReportCron); err != nil {
		errs = append(errs, fmt.Errorf("REPORT_CRON: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the configured time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Survey.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// HealthAddr is the listen address of the liveness endpoint
func (c *Config) HealthAddr() string {
	return ":" + strings.TrimPrefix(c.Server.Port, ":")
}
