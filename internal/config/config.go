package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Identity struct {
		BaseURL string
		Timeout time.Duration
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		FromName   string
	}
	Telegram struct {
		BotToken  string
		RateLimit int
	}
	API struct {
		Port     string
		BasePath string
	}
	WebSocket struct {
		MaxConnsPerUser int
		PongTimeout     time.Duration
	}
	Owner struct {
		Channel string // "email" or "telegram"
	}
	Sweep struct {
		Schedule string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Identity service
	cfg.Identity.BaseURL = os.Getenv("IDENTITY_URL")
	if d, err := time.ParseDuration(os.Getenv("IDENTITY_TIMEOUT")); err == nil {
		cfg.Identity.Timeout = d
	}

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_LIMIT")); err == nil {
		cfg.Telegram.RateLimit = r
	}

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// WebSocket settings
	if n, err := strconv.Atoi(os.Getenv("WS_MAX_CONNS_PER_USER")); err == nil {
		cfg.WebSocket.MaxConnsPerUser = n
	}
	if d, err := time.ParseDuration(os.Getenv("WS_PONG_TIMEOUT")); err == nil {
		cfg.WebSocket.PongTimeout = d
	}

	cfg.Owner.Channel = os.Getenv("OWNER_CHANNEL")
	cfg.Sweep.Schedule = os.Getenv("SWEEP_SCHEDULE")

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Identity.BaseURL == "" {
		missing = append(missing, "IDENTITY_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Identity.Timeout == 0 {
		cfg.Identity.Timeout = 5 * time.Second
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "project_events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "alerts-service"
	}
	if cfg.WebSocket.MaxConnsPerUser == 0 {
		cfg.WebSocket.MaxConnsPerUser = 10
	}
	if cfg.WebSocket.PongTimeout == 0 {
		cfg.WebSocket.PongTimeout = 90 * time.Second
	}
	if cfg.Telegram.RateLimit == 0 {
		cfg.Telegram.RateLimit = 20
	}
	if cfg.Owner.Channel == "" {
		cfg.Owner.Channel = "email"
	}
	if cfg.Sweep.Schedule == "" {
		cfg.Sweep.Schedule = "0 */6 * * *"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
