package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr           string
	DBPath         string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string

	IdleRoomTimeout time.Duration
	InactiveAfter   time.Duration
	SessionTTL      time.Duration
	AdvanceDelay    time.Duration
	SweepInterval   time.Duration

	RateLimit  int
	RateWindow time.Duration
}

// Load reads config.yaml (if present) and RMCS_-prefixed environment
// variables over the built-in defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("addr", "0.0.0.0:8080")
	v.SetDefault("db_path", "raja-mantri-server.db")
	v.SetDefault("jwt_secret", "secret-key")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("idle_room_timeout", 5*time.Minute)
	v.SetDefault("inactive_after", 30*time.Minute)
	v.SetDefault("session_ttl", 2*time.Hour)
	v.SetDefault("advance_delay", 5*time.Second)
	v.SetDefault("sweep_interval", time.Minute)
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_window", time.Minute)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("RMCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	return Config{
		Addr:            v.GetString("addr"),
		DBPath:          v.GetString("db_path"),
		JWTSecret:       v.GetString("jwt_secret"),
		TokenTTL:        v.GetDuration("token_ttl"),
		AllowedOrigins:  v.GetStringSlice("allowed_origins"),
		IdleRoomTimeout: v.GetDuration("idle_room_timeout"),
		InactiveAfter:   v.GetDuration("inactive_after"),
		SessionTTL:      v.GetDuration("session_ttl"),
		AdvanceDelay:    v.GetDuration("advance_delay"),
		SweepInterval:   v.GetDuration("sweep_interval"),
		RateLimit:       v.GetInt("rate_limit"),
		RateWindow:      v.GetDuration("rate_window"),
	}, nil
}
