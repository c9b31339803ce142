package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string
	ListenAddr string

	LogLevel  string
	LogFormat string

	// zero means no client timeout
	HTTPTimeout time.Duration

	SessionFile     string
	SessionHashKey  []byte
	SessionBlockKey []byte

	// OP slip letterhead
	HospitalName    string
	HospitalAddress string
	HelpdeskEmail   string

	RecordsRefresh time.Duration
}

var ErrSessionKeys = errors.New("SESSION_HASH_KEY and SESSION_BLOCK_KEY are required (base64; generate with `opbook keys`)")

// FromEnv reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		APIBaseURL:      strings.TrimRight(getenv("API_BASE_URL", "http://localhost:5001"), "/"),
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getenv("LOG_FORMAT", "json")),
		SessionFile:     getenv("SESSION_FILE", defaultSessionFile()),
		HospitalName:    getenv("HOSPITAL_NAME", "City Hospital"),
		HospitalAddress: getenv("HOSPITAL_ADDRESS", "123 Main Road, Metro City, 123456"),
		HelpdeskEmail:   getenv("HELPDESK_EMAIL", "helpdesk@hospital.com"),
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Config{}, fmt.Errorf("invalid API_BASE_URL %q (want http(s)://host[:port])", cfg.APIBaseURL)
	}

	timeoutSec, err := strconv.Atoi(getenv("HTTP_TIMEOUT_SECONDS", "0"))
	if err != nil || timeoutSec < 0 {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSec) * time.Second

	refreshSec, err := strconv.Atoi(getenv("RECORDS_REFRESH_SECONDS", "30"))
	if err != nil || refreshSec < 1 {
		return Config{}, fmt.Errorf("invalid RECORDS_REFRESH_SECONDS")
	}
	cfg.RecordsRefresh = time.Duration(refreshSec) * time.Second

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q (want json or console)", cfg.LogFormat)
	}

	hashKey := os.Getenv("SESSION_HASH_KEY")
	blockKey := os.Getenv("SESSION_BLOCK_KEY")
	if hashKey != "" {
		if cfg.SessionHashKey, err = decodeB64(hashKey); err != nil {
			return Config{}, fmt.Errorf("SESSION_HASH_KEY: %w", err)
		}
		if len(cfg.SessionHashKey) < 32 {
			return Config{}, fmt.Errorf("SESSION_HASH_KEY must decode to at least 32 bytes (got %d)", len(cfg.SessionHashKey))
		}
	}
	if blockKey != "" {
		if cfg.SessionBlockKey, err = decodeB64(blockKey); err != nil {
			return Config{}, fmt.Errorf("SESSION_BLOCK_KEY: %w", err)
		}
		switch len(cfg.SessionBlockKey) {
		case 16, 24, 32:
		default:
			return Config{}, fmt.Errorf("SESSION_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(cfg.SessionBlockKey))
		}
	}

	return cfg, nil
}

// RequireSessionKeys reports whether both session keys are configured.
func (c Config) RequireSessionKeys() error {
	if len(c.SessionHashKey) == 0 || len(c.SessionBlockKey) == 0 {
		return ErrSessionKeys
	}
	return nil
}

func decodeB64(s string) ([]byte, error) {
	// allow pointing to a file path for secret mounts
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".opbook-session"
	}
	return filepath.Join(home, ".opbook", "session")
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
