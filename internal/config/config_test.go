package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day token ttl, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.BcryptCost != MinBcryptCost {
		t.Fatalf("expected bcrypt cost %d, got %d", MinBcryptCost, cfg.Auth.BcryptCost)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := []byte(`
server:
  addr: ":9000"
database:
  driver: sqlite
  dsn: /tmp/x.db
auth:
  jwt_secret: from-file
  bcrypt_cost: 13
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_URL", "postgres://db/taskflow?sslmode=disable")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("expected addr from file, got %q", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Fatalf("expected env to win, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("expected postgres driver from DATABASE_URL, got %q", cfg.Database.Driver)
	}
	if cfg.Auth.BcryptCost != 13 {
		t.Fatalf("expected bcrypt cost 13, got %d", cfg.Auth.BcryptCost)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing jwt secret to fail")
	}

	cfg.Auth.JWTSecret = "s"
	cfg.Auth.BcryptCost = 10
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected low bcrypt cost to fail")
	}

	cfg.Auth.BcryptCost = MinBcryptCost
	cfg.Database.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.yaml")
	cfg := DefaultConfig()
	cfg.Auth.JWTSecret = "saved"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Auth.JWTSecret != "saved" {
		t.Fatalf("expected saved secret, got %q", loaded.Auth.JWTSecret)
	}
}
