// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rebootlabs/mastery/internal/llm"
	"github.com/rebootlabs/mastery/internal/policy"
)

// EnvPrefix is prepended to every environment variable, e.g. MASTERY_DB.
const EnvPrefix = "MASTERY"

// Config is the resolved runtime configuration.
type Config struct {
	DBPath       string
	LogMode      string
	RedisURL     string
	RedisChannel string
	Policy       policy.Policy
	LLM          llm.Config
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromViper(New())
}

// New returns a viper instance with defaults and env binding configured.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := policy.Default()
	v.SetDefault("db", "")
	v.SetDefault("log_mode", "development")
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_channel", "mastery.events")
	v.SetDefault("route.require_review", def.RequireRouteReview)
	v.SetDefault("policy.quiz_streak", def.QuizStreak)
	v.SetDefault("policy.confused_threshold", def.ConfusedThreshold)
	v.SetDefault("policy.pulse_window", def.PulseWindow)
	v.SetDefault("policy.alert_cooldown", def.AlertCooldown)
	v.SetDefault("policy.earn_threshold", def.EarnThreshold)
	v.SetDefault("policy.weakzone_minutes", def.WeakZoneMinutes)
	v.SetDefault("policy.formative_minutes", def.FormativeMinutes)
	v.SetDefault("policy.spacedrep_minutes", def.SpacedRepMinutes)

	llm.SetDefaults(v)
	return v
}

// FromViper resolves a Config from an already configured viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	p := policy.Default()
	p.QuizStreak = v.GetInt("policy.quiz_streak")
	p.ConfusedThreshold = v.GetInt("policy.confused_threshold")
	p.PulseWindow = v.GetDuration("policy.pulse_window")
	p.AlertCooldown = v.GetDuration("policy.alert_cooldown")
	p.EarnThreshold = v.GetFloat64("policy.earn_threshold")
	p.WeakZoneMinutes = v.GetInt("policy.weakzone_minutes")
	p.FormativeMinutes = v.GetInt("policy.formative_minutes")
	p.SpacedRepMinutes = v.GetInt("policy.spacedrep_minutes")
	p.RequireRouteReview = v.GetBool("route.require_review")
	if err := p.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid policy: %w", err)
	}

	return Config{
		DBPath:       v.GetString("db"),
		LogMode:      v.GetString("log_mode"),
		RedisURL:     v.GetString("redis_url"),
		RedisChannel: v.GetString("redis_channel"),
		Policy:       p,
		LLM:          llm.ConfigFromViper(v),
	}, nil
}
