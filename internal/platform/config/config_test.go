package config

import "testing"

func validConfig() Config {
	return Config{
		DatabaseURL:      "postgres://localhost/leaveflow",
		JWTSecret:        "secret",
		DefaultAllotment: 15,
		MaxBodyBytes:     1048576,
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg := validConfig()
	cfg.DatabaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing DATABASE_URL to fail")
	}

	cfg = validConfig()
	cfg.JWTSecret = "  "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing JWT_SECRET to fail")
	}

	cfg = validConfig()
	cfg.DefaultAllotment = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected zero allotment to fail")
	}

	cfg = validConfig()
	cfg.EmailEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected email without SMTP host to fail")
	}

	cfg = validConfig()
	cfg.Environment = "production"
	cfg.RunSeed = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected production seed without password to fail")
	}
}
