package config

import (
	"strings"
	"testing"
	"time"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(New())
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.Policy.EarnThreshold != 60 {
		t.Errorf("EarnThreshold = %v, want 60", cfg.Policy.EarnThreshold)
	}
	if cfg.Policy.AlertCooldown != 5*time.Minute {
		t.Errorf("AlertCooldown = %v, want 5m", cfg.Policy.AlertCooldown)
	}
	if cfg.RedisChannel != "mastery.events" {
		t.Errorf("RedisChannel = %q, want mastery.events", cfg.RedisChannel)
	}
	if cfg.Policy.RequireRouteReview {
		t.Error("RequireRouteReview = true, want false")
	}
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("MASTERY_DB", "/tmp/test.db")
	t.Setenv("MASTERY_POLICY_EARN_THRESHOLD", "70")
	t.Setenv("MASTERY_POLICY_ALERT_COOLDOWN", "10m")
	t.Setenv("MASTERY_ROUTE_REQUIRE_REVIEW", "true")
	t.Setenv("MASTERY_LLM_PROVIDER", "mock")

	cfg, err := FromViper(New())
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want /tmp/test.db", cfg.DBPath)
	}
	if cfg.Policy.EarnThreshold != 70 {
		t.Errorf("EarnThreshold = %v, want 70", cfg.Policy.EarnThreshold)
	}
	if cfg.Policy.AlertCooldown != 10*time.Minute {
		t.Errorf("AlertCooldown = %v, want 10m", cfg.Policy.AlertCooldown)
	}
	if !cfg.Policy.RequireRouteReview {
		t.Error("RequireRouteReview = false, want true")
	}
	if cfg.LLM.Provider != "mock" {
		t.Errorf("LLM.Provider = %q, want mock", cfg.LLM.Provider)
	}
}

func TestFromViper_InvalidPolicy(t *testing.T) {
	t.Setenv("MASTERY_POLICY_EARN_THRESHOLD", "150")

	_, err := FromViper(New())
	if err == nil {
		t.Fatal("expected error for threshold above 100")
	}
	if !strings.Contains(err.Error(), "invalid policy") {
		t.Errorf("error = %q, want invalid policy", err)
	}
}
