package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func validYAML() string {
	return `
source:
  base_url: https://api.example-source.jp
  access_token: src-token
destination:
  base_url: https://example.myshop.test/admin/api/2024-01
  access_token: dst-token
`
}

func TestLoadBytes(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := LoadBytes([]byte(validYAML()))
		if err != nil {
			t.Fatalf("LoadBytes: %v", err)
		}
		if cfg.Source.PageSize != 100 {
			t.Errorf("expected default page size 100, got %d", cfg.Source.PageSize)
		}
		if cfg.SourceInterval() != 1100*time.Millisecond {
			t.Errorf("expected default source interval 1.1s, got %v", cfg.SourceInterval())
		}
		if cfg.DestinationInterval() != 550*time.Millisecond {
			t.Errorf("expected default destination interval 550ms, got %v", cfg.DestinationInterval())
		}
		if cfg.Destination.PhoneCountryCode != "+81" {
			t.Errorf("expected default country code +81, got %s", cfg.Destination.PhoneCountryCode)
		}
		if cfg.Migration.MaxRetries != 5 {
			t.Errorf("expected default max retries 5, got %d", cfg.Migration.MaxRetries)
		}
		if cfg.Migration.DataDir == "" {
			t.Error("expected data dir default to be set")
		}
	})

	t.Run("missing source token", func(t *testing.T) {
		yaml := strings.Replace(validYAML(), "access_token: src-token", "access_token: \"\"", 1)
		if _, err := LoadBytes([]byte(yaml)); err == nil {
			t.Fatal("expected error for missing source token")
		}
	})

	t.Run("missing destination base url", func(t *testing.T) {
		yaml := strings.Replace(validYAML(), "base_url: https://example.myshop.test/admin/api/2024-01", "base_url: \"\"", 1)
		if _, err := LoadBytes([]byte(yaml)); err == nil {
			t.Fatal("expected error for missing destination base_url")
		}
	})

	t.Run("bad date format", func(t *testing.T) {
		yaml := strings.Replace(validYAML(), "  access_token: src-token", "  access_token: src-token\n  start_date: 01-02-2024", 1)
		if _, err := LoadBytes([]byte(yaml)); err == nil {
			t.Fatal("expected error for bad start_date")
		}
	})

	t.Run("expands environment variables", func(t *testing.T) {
		os.Setenv("ECBRIDGE_TEST_TOKEN", "from-env")
		defer os.Unsetenv("ECBRIDGE_TEST_TOKEN")

		yaml := strings.Replace(validYAML(), "access_token: src-token", "access_token: ${ECBRIDGE_TEST_TOKEN}", 1)
		cfg, err := LoadBytes([]byte(yaml))
		if err != nil {
			t.Fatalf("LoadBytes: %v", err)
		}
		if cfg.Source.AccessToken != "from-env" {
			t.Errorf("expected token from env, got %q", cfg.Source.AccessToken)
		}
	})

	t.Run("page size out of range", func(t *testing.T) {
		yaml := strings.Replace(validYAML(), "  access_token: src-token", "  access_token: src-token\n  page_size: 1000", 1)
		if _, err := LoadBytes([]byte(yaml)); err == nil {
			t.Fatal("expected error for page_size > 500")
		}
	})
}

func TestSanitized(t *testing.T) {
	cfg, err := LoadBytes([]byte(validYAML()))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	cfg.Slack.WebhookURL = "https://hooks.slack.example/services/T000/B000/XXX"

	s := cfg.Sanitized()
	if s.Source.AccessToken != "[REDACTED]" || s.Destination.AccessToken != "[REDACTED]" {
		t.Error("expected tokens to be redacted")
	}
	if s.Slack.WebhookURL != "[REDACTED]" {
		t.Error("expected webhook to be redacted")
	}
	// Original stays intact
	if cfg.Source.AccessToken != "src-token" {
		t.Error("Sanitized must not mutate the original config")
	}
}

func TestStateFilePaths(t *testing.T) {
	cfg, err := LoadBytes([]byte(validYAML() + "migration:\n  data_dir: /tmp/ecbridge-test\n"))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if cfg.IDMapFile() != "/tmp/ecbridge-test/idmap.yaml" {
		t.Errorf("unexpected id map path: %s", cfg.IDMapFile())
	}
	if cfg.SalesFile() != "/tmp/ecbridge-test/sales.json" {
		t.Errorf("unexpected sales path: %s", cfg.SalesFile())
	}
}
