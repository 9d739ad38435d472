package config

import (
	"log/slog"
	"time"
)

const defaultLoginURL = "https://login.salesforce.com"

type Logger struct {
	Level     slog.Level
	Plaintext bool
}

type Salesforce struct {
	LoginURL       string
	Username       string
	Password       string
	KeyringService string // где искать пароль, если SALESFORCE_PASSWORD не задан
	APIVersion     string
	HTTPTimeout    time.Duration
}

type Upload struct {
	VersionName  string        // имя бета-версии (git sha)
	PollInterval time.Duration // фиксированный интервал опроса, без backoff
	MaxPolls     int           // 0 - опрашиваем бесконечно
}

type Config struct {
	Logger     Logger
	Salesforce Salesforce
	Upload     Upload
}

func Load() (Config, error) {
	var ge getenv
	cfg := Config{
		Logger: Logger{
			Level:     ge.LogLevel("LOG_LEVEL", false, slog.LevelInfo),
			Plaintext: ge.Bool("LOG_PLAINTEXT", false, true),
		},
		Salesforce: Salesforce{
			LoginURL:       ge.URL("SALESFORCE_URL", false, defaultLoginURL),
			Username:       ge.String("SALESFORCE_USERNAME", false, ""),
			Password:       ge.String("SALESFORCE_PASSWORD", false, ""),
			KeyringService: ge.String("SALESFORCE_KEYRING_SERVICE", false, "pkgupload"),
			APIVersion:     ge.String("SALESFORCE_API_VERSION", false, "42.0"),
			HTTPTimeout:    ge.Duration("HTTP_TIMEOUT", false, 30*time.Second),
		},
		Upload: Upload{
			VersionName:  ge.String("GIT_SHA", true, ""),
			PollInterval: ge.Duration("UPLOAD_POLL_INTERVAL", false, 1*time.Second),
			MaxPolls:     ge.Int("UPLOAD_MAX_POLLS", false, 0),
		},
	}
	ge.Check(cfg.Upload.PollInterval > 0, "UPLOAD_POLL_INTERVAL must be > 0")
	ge.Check(cfg.Upload.MaxPolls >= 0, "UPLOAD_MAX_POLLS must be >= 0")
	return cfg, ge.Err()
}
