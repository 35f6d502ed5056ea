package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"KIOSK_PORT", "KIOSK_AMQP_EXCHANGE", "KIOSK_TICKET_MIN", "KIOSK_TICKET_MAX", "KIOSK_SESSION_TTL_SECONDS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8090" || cfg.AMQPExchange != "kiosk_tickets" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.TicketMin != 100 || cfg.TicketMax != 999 || cfg.SessionTTL != 8*time.Hour || cfg.QRSize != 300 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KIOSK_PORT", "9000")
	t.Setenv("KIOSK_BRIDGE", "lp")
	t.Setenv("KIOSK_TICKET_MIN", "1")
	t.Setenv("KIOSK_TICKET_MAX", "oops")
	t.Setenv("KIOSK_SESSION_TTL_SECONDS", "60")
	cfg := Load()
	if cfg.Port != "9000" || cfg.Bridge != "lp" || cfg.TicketMin != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.TicketMax != 999 {
		t.Fatalf("expected fallback for invalid int, got %d", cfg.TicketMax)
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.SessionTTL)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("KIOSK_PORT", "9000")
	t.Setenv("KIOSK_BRIDGE", "log")
	cfg := Load()
	flagSet := pflag.NewFlagSet("kiosk-service", pflag.ContinueOnError)
	cfg.AddFlags(flagSet)
	if err := flagSet.Parse([]string{"--bridge", "http://localhost:9100", "--categories=/etc/kiosk/categories.yaml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "9000" || cfg.Bridge != "http://localhost:9100" || cfg.CategoriesFile != "/etc/kiosk/categories.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadCategories(t *testing.T) {
	defaults, err := LoadCategories("")
	if err != nil || len(defaults) != 4 || defaults[0].Code != "A" {
		t.Fatalf("unexpected defaults %+v err=%v", defaults, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "categories.yaml")
	content := "- code: w\n  name: Wisuda Sarjana\n- code: P\n  name: Wisuda Pascasarjana\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	categories, err := LoadCategories(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(categories) != 2 || categories[0].Code != "W" || categories[1].Name != "Wisuda Pascasarjana" {
		t.Fatalf("unexpected categories %+v", categories)
	}
}

func TestLoadCategoriesRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"duplicate": "- code: A\n  name: One\n- code: a\n  name: Two\n",
		"missing":   "- code: A\n",
		"empty":     "[]\n",
		"malformed": "code: [",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadCategories(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
	if _, err := LoadCategories(filepath.Join(dir, "absent.yaml")); err == nil || !strings.Contains(err.Error(), "read categories") {
		t.Fatalf("expected read error, got %v", err)
	}
}
