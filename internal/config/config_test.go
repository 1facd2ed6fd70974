package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGIN", "")
	t.Setenv("DEFAULT_STORE_ID", "")
	t.Setenv("TAX_RATE_PERCENT", "")
	t.Setenv("STOCK_OVERVIEW_TTL_SECONDS", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected address :8080, got %s", cfg.Address())
	}
	if cfg.StoreID != "main-store" {
		t.Fatalf("expected default store id main-store, got %s", cfg.StoreID)
	}
	if cfg.TaxRatePercent != 18 {
		t.Fatalf("expected default tax rate 18, got %v", cfg.TaxRatePercent)
	}
	if cfg.OverviewTTLSeconds != 20 {
		t.Fatalf("expected default overview ttl 20, got %d", cfg.OverviewTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token ttl 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg := Load()

	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty auth secret when unset, got %q", cfg.AuthSecret)
	}
	if cfg.ManagerPIN != "" {
		t.Fatalf("expected empty manager pin when unset, got %q", cfg.ManagerPIN)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TAX_RATE_PERCENT", "11")
	t.Setenv("DEFAULT_STORE_ID", "branch-7")
	t.Setenv("AUTH_SECRET", "  secret-with-padding  ")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.TaxRatePercent != 11 {
		t.Fatalf("expected tax rate 11, got %v", cfg.TaxRatePercent)
	}
	if cfg.StoreID != "branch-7" {
		t.Fatalf("expected store id branch-7, got %s", cfg.StoreID)
	}
	if cfg.AuthSecret != "secret-with-padding" {
		t.Fatalf("expected trimmed auth secret, got %q", cfg.AuthSecret)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" || cfg.RedisDB != 3 {
		t.Fatalf("unexpected redis config %s db %d", cfg.RedisAddr, cfg.RedisDB)
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("TAX_RATE_PERCENT", "lots")
	t.Setenv("STOCK_OVERVIEW_TTL_SECONDS", "-5")

	cfg := Load()

	if cfg.TaxRatePercent != 18 {
		t.Fatalf("malformed tax rate must fall back to 18, got %v", cfg.TaxRatePercent)
	}
	if cfg.OverviewTTLSeconds != 20 {
		t.Fatalf("negative ttl must fall back to 20, got %d", cfg.OverviewTTLSeconds)
	}
}
