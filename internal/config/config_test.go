package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("CS2_LEAVE_GRACE", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LoL.DormantInterval != 2*time.Minute || cfg.LoL.ActiveInterval != 30*time.Second {
		t.Fatalf("lol polling = %+v", cfg.LoL)
	}
	if cfg.LoL.LeaveGrace != 0 || cfg.CS2.LeaveGrace != 2*time.Minute {
		t.Fatalf("leave grace = %v, %v", cfg.LoL.LeaveGrace, cfg.CS2.LeaveGrace)
	}
	if cfg.StartingBalance != 1000 || cfg.BetCutoff != 10*time.Minute {
		t.Fatalf("betting = %d, %v", cfg.StartingBalance, cfg.BetCutoff)
	}
	if cfg.ShutdownTimeout != 45*time.Second || cfg.DiscordApplicationID != "" {
		t.Fatalf("shutdown = %v, application = %q", cfg.ShutdownTimeout, cfg.DiscordApplicationID)
	}
}

func TestLoadRejectsZeroShutdownTimeout(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("SHUTDOWN_TIMEOUT", "0s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for SHUTDOWN_TIMEOUT=0s")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DISCORD_BOT_TOKEN")
	}
}

func TestLoadRejectsZeroAttempts(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("FETCH_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for FETCH_ATTEMPTS=0")
	}
}
