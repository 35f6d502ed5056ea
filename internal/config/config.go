package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"qms/kiosk-service/internal/models"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                      string
	DatabaseURL               string
	Bridge                    string
	BridgeToken               string
	QueueAPIURL               string
	QueueAPIToken             string
	AMQPURL                   string
	AMQPExchange              string
	CategoriesFile            string
	Location                  string
	TicketMin                 int
	TicketMax                 int
	SessionTTL                time.Duration
	SessionSweepInterval      time.Duration
	QRSize                    int
	RateLimitPerMinute        int
	RateLimitBurst            int
	SessionRateLimitPerMinute int
	SessionRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("KIOSK_PORT")
	if port == "" {
		port = "8090"
	}
	exchange := os.Getenv("KIOSK_AMQP_EXCHANGE")
	if exchange == "" {
		exchange = "kiosk_tickets"
	}

	return Config{
		Port:                      port,
		DatabaseURL:               os.Getenv("DB_DSN"),
		Bridge:                    os.Getenv("KIOSK_BRIDGE"),
		BridgeToken:               os.Getenv("KIOSK_BRIDGE_TOKEN"),
		QueueAPIURL:               os.Getenv("KIOSK_QUEUE_API_URL"),
		QueueAPIToken:             os.Getenv("KIOSK_QUEUE_API_TOKEN"),
		AMQPURL:                   os.Getenv("KIOSK_AMQP_URL"),
		AMQPExchange:              exchange,
		CategoriesFile:            os.Getenv("KIOSK_CATEGORIES_FILE"),
		Location:                  os.Getenv("KIOSK_LOCATION"),
		TicketMin:                 readInt("KIOSK_TICKET_MIN", 100),
		TicketMax:                 readInt("KIOSK_TICKET_MAX", 999),
		SessionTTL:                readDurationSeconds("KIOSK_SESSION_TTL_SECONDS", 28800),
		SessionSweepInterval:      readDurationSeconds("KIOSK_SESSION_SWEEP_SECONDS", 60),
		QRSize:                    readInt("KIOSK_QR_SIZE", 300),
		RateLimitPerMinute:        readInt("KIOSK_RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:            readInt("KIOSK_RATE_LIMIT_BURST", 30),
		SessionRateLimitPerMinute: readInt("KIOSK_SESSION_RATE_LIMIT_PER_MIN", 240),
		SessionRateLimitBurst:     readInt("KIOSK_SESSION_RATE_LIMIT_BURST", 60),
	}
}

// AddFlags registers command-line overrides for the env values already in c.
func (c *Config) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Port, "port", c.Port, "HTTP listen port (KIOSK_PORT)")
	flagSet.StringVar(&c.Bridge, "bridge", c.Bridge, "print bridge: log, noop, fail, lp or an http(s) URL (KIOSK_BRIDGE)")
	flagSet.StringVar(&c.CategoriesFile, "categories", c.CategoriesFile, "YAML category catalogue (KIOSK_CATEGORIES_FILE)")
}

// LoadCategories reads the catalogue from path, or returns the built-in set
// when path is empty.
func LoadCategories(path string) ([]models.Category, error) {
	if path == "" {
		return models.DefaultCategories(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	var categories []models.Category
	if err := yaml.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("parse categories %s: %w", path, err)
	}
	seen := make(map[string]bool, len(categories))
	for i := range categories {
		code := strings.ToUpper(strings.TrimSpace(categories[i].Code))
		if code == "" || strings.TrimSpace(categories[i].Name) == "" {
			return nil, fmt.Errorf("category %d: code and name are required", i+1)
		}
		if seen[code] {
			return nil, fmt.Errorf("category %s: duplicate code", code)
		}
		seen[code] = true
		categories[i].Code = code
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("categories %s: no entries", path)
	}
	return categories, nil
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
