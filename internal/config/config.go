package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	Mode            string
	LogFile         string
	StaticFilesPath string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	// SnapshotStore selects where learner snapshots live: "sql" or "redis"
	SnapshotStore string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SnapshotTTL   time.Duration

	SpeechEnabled  bool
	AudioCachePath string
	Voices         []string
	DefaultVoice   string
	SpeechRate     float64
	SpeechPitch    float64

	AppSecret          string
	LearnerTokenTTL    time.Duration
	SessionIdleTimeout time.Duration
	SpeakRateLimit     int
	SpeakRateWindow    time.Duration
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables, falling back to defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerPort:         v.GetString("port"),
		Mode:               v.GetString("mode"),
		LogFile:            v.GetString("log_file"),
		StaticFilesPath:    v.GetString("static_path"),
		DatabaseType:       v.GetString("db_type"),
		DatabasePath:       v.GetString("db_path"),
		DatabaseURL:        v.GetString("database_url"),
		SnapshotStore:      strings.ToLower(v.GetString("snapshot_store")),
		RedisAddr:          v.GetString("redis_addr"),
		RedisPassword:      v.GetString("redis_password"),
		RedisDB:            v.GetInt("redis_db"),
		SnapshotTTL:        v.GetDuration("snapshot_ttl"),
		SpeechEnabled:      v.GetBool("speech_enabled"),
		AudioCachePath:     v.GetString("audio_cache_path"),
		Voices:             splitList(v.GetString("voices")),
		DefaultVoice:       v.GetString("default_voice"),
		SpeechRate:         v.GetFloat64("speech_rate"),
		SpeechPitch:        v.GetFloat64("speech_pitch"),
		AppSecret:          v.GetString("app_secret"),
		LearnerTokenTTL:    v.GetDuration("learner_token_ttl"),
		SessionIdleTimeout: v.GetDuration("session_idle_timeout"),
		SpeakRateLimit:     v.GetInt("speak_rate_limit"),
		SpeakRateWindow:    v.GetDuration("speak_rate_window"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("mode", "development")
	v.SetDefault("log_file", "")
	v.SetDefault("static_path", "./static")
	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_path", "./englishdrills.db")
	v.SetDefault("database_url", "")
	v.SetDefault("snapshot_store", "sql")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("snapshot_ttl", 0)
	v.SetDefault("speech_enabled", true)
	v.SetDefault("audio_cache_path", "./static/audio")
	v.SetDefault("voices", "en-US,en-GB,en-AU,en-IN")
	v.SetDefault("default_voice", "en-US")
	v.SetDefault("speech_rate", 1.0)
	v.SetDefault("speech_pitch", 1.0)
	v.SetDefault("app_secret", "dev-secret-change-me")
	v.SetDefault("learner_token_ttl", 365*24*time.Hour)
	v.SetDefault("session_idle_timeout", 2*time.Hour)
	v.SetDefault("speak_rate_limit", 30)
	v.SetDefault("speak_rate_window", time.Minute)
}

func (c *Config) validate() error {
	switch c.SnapshotStore {
	case "sql", "redis":
	default:
		return fmt.Errorf("unsupported snapshot store: %s", c.SnapshotStore)
	}
	if c.IsProduction() && len(c.AppSecret) < 32 {
		return fmt.Errorf("APP_SECRET is too short (%d chars), must be at least 32 characters in production", len(c.AppSecret))
	}
	if c.SpeakRateLimit <= 0 || c.SpeakRateWindow <= 0 {
		return fmt.Errorf("speak rate limit must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return IsProductionMode(c.Mode)
}

// IsProductionMode reports whether mode names production ("prod" or
// "production", any case)
func IsProductionMode(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
