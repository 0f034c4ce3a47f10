package config

import "testing"

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "127.0.0.1",
		DBPort:     "3306",
		DBName:     "login-php",
		DBUser:     "app",
		DBPassword: "secret",
	}

	want := "app:secret@tcp(127.0.0.1:3306)/login-php?charset=utf8mb4&parseTime=true"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestValidateReleaseModeRequiresDatabaseCredentials(t *testing.T) {
	cfg := &Config{GinMode: "release", DBName: "login-php"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when DB_USER is missing in release mode")
	}

	cfg.DBUser = "app"
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error when DB_PASSWORD is missing in release mode")
	}

	cfg.DBPassword = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected validation to pass, got %v", err)
	}
}

func TestValidateDebugModeAllowsEmptyCredentials(t *testing.T) {
	cfg := &Config{GinMode: "debug"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected debug mode to start without credentials, got %v", err)
	}
}
