package db

import "testing"

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/doctors", 20, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxConns != 20 || cfg.MinConns != 5 {
		t.Errorf("expected 20/5, got %d/%d", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.ConnConfig.RuntimeParams["application_name"] != applicationName {
		t.Errorf("expected application_name %q, got %q", applicationName, cfg.ConnConfig.RuntimeParams["application_name"])
	}

	cfg, err = poolConfig("postgres://u:p@localhost:5432/doctors?application_name=worker", 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConnConfig.RuntimeParams["application_name"] != "worker" {
		t.Error("expected explicit application_name to win")
	}
}

func TestPoolConfig_InvalidURL(t *testing.T) {
	if _, err := poolConfig("postgres://%zz", 1, 1); err == nil {
		t.Error("expected parse error")
	}
}
