package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Run modes
const (
	RunModeCron = "cron"
	RunModeOnce = "once"
)

// Store drivers
const (
	StoreDriverPostgres  = "postgres"
	StoreDriverFirestore = "firestore"
)

// Push providers
const (
	PushProviderFCM  = "fcm"
	PushProviderExpo = "expo"
	PushProviderAuto = "auto"
)

var (
	ErrInvalidRunMode      = errors.New("invalid RUN_MODE")
	ErrInvalidStoreDriver  = errors.New("invalid STORE_DRIVER")
	ErrInvalidPushProvider = errors.New("invalid PUSH_PROVIDER")
)

type Config struct {
	Timezone string `envconfig:"TIMEZONE" default:"America/Sao_Paulo"`
	RunMode  string `envconfig:"RUN_MODE" default:"cron"` // cron|once
	CronSpec string `envconfig:"CRON_SPEC" default:"* * * * *"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"` // postgres|firestore

	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"require"`

	FirebaseProjectID   string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseClientEmail string `envconfig:"FIREBASE_CLIENT_EMAIL"`
	FirebasePrivateKey  string `envconfig:"FIREBASE_PRIVATE_KEY"`
	CredentialsFile     string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`

	SchedulesCollection string `envconfig:"FIRESTORE_SCHEDULES_COLLECTION" default:"medicamentos"`
	HistoryCollection   string `envconfig:"FIRESTORE_HISTORY_COLLECTION" default:"historico"`
	UsersCollection     string `envconfig:"FIRESTORE_USERS_COLLECTION" default:"users"`

	PushProvider string `envconfig:"PUSH_PROVIDER" default:"fcm"` // fcm|expo|auto

	RedisURL string        `envconfig:"REDIS_URL"`
	ClaimTTL time.Duration `envconfig:"CLAIM_TTL" default:"26h"`

	ScheduleConcurrency int  `envconfig:"SCHEDULE_CONCURRENCY" default:"1"`
	EndpointConcurrency int  `envconfig:"ENDPOINT_CONCURRENCY" default:"16"`
	PruneUnregistered   bool `envconfig:"PRUNE_UNREGISTERED" default:"false"`

	NotificationTitle string `envconfig:"NOTIFICATION_TITLE" default:"Hora do Remédio! 💊"`
	NotificationBody  string `envconfig:"NOTIFICATION_BODY" default:"É hora de tomar o seu %s (%s)."`
	NotificationIcon  string `envconfig:"NOTIFICATION_ICON" default:"/favicon.ico"`

	HTTPAddr         string `envconfig:"HTTP_ADDR" default:":8080"`
	TriggerJWTSecret string `envconfig:"TRIGGER_JWT_SECRET"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json|console
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the dispatcher cannot start with.
func (c *Config) Validate() error {
	switch c.RunMode {
	case RunModeCron, RunModeOnce:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRunMode, c.RunMode)
	}

	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverFirestore:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreDriver, c.StoreDriver)
	}

	switch c.PushProvider {
	case PushProviderFCM, PushProviderExpo, PushProviderAuto:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPushProvider, c.PushProvider)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	if c.ScheduleConcurrency < 1 {
		return fmt.Errorf("SCHEDULE_CONCURRENCY must be >= 1, got %d", c.ScheduleConcurrency)
	}
	if c.EndpointConcurrency < 1 {
		return fmt.Errorf("ENDPOINT_CONCURRENCY must be >= 1, got %d", c.EndpointConcurrency)
	}

	if err := validateBodyTemplate(c.NotificationBody); err != nil {
		return err
	}

	return nil
}

// validateBodyTemplate accepts exactly two %s verbs (name, dosage) and no
// other % anywhere, so Sprintf never renders %! noise into a reminder.
func validateBodyTemplate(body string) error {
	if strings.Count(body, "%s") != 2 {
		return fmt.Errorf("NOTIFICATION_BODY must contain exactly two %%s verbs (name, dosage)")
	}
	if strings.Contains(strings.ReplaceAll(body, "%s", ""), "%") {
		return fmt.Errorf("NOTIFICATION_BODY may not contain %% other than the two %%s verbs")
	}
	return nil
}

// NeedsFirebase reports whether a firebase app must be initialised.
func (c *Config) NeedsFirebase() bool {
	return c.StoreDriver == StoreDriverFirestore || c.PushProvider != PushProviderExpo
}
