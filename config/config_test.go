package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("S3_BUCKET", "poll-exports")
	t.Setenv("S3_REGION", "eu-west-1")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 500, cfg.ScanPageSize)
	assert.Equal(t, "poll-exports", cfg.S3.Bucket)
	assert.Empty(t, cfg.S3.PublicBase)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("SCAN_PAGE_SIZE", "50")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("S3_PUBLIC_BASE", "https://cdn.example")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 50, cfg.ScanPageSize)
	assert.True(t, cfg.Events)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://cdn.example", cfg.S3.PublicBase)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "polls"}
	assert.Equal(t, "postgres://u:p@db:5432/polls?sslmode=disable", d.DSN())

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}
