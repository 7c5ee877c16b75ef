package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("costnav", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.StaticKeys != "" {
		t.Fatalf("Auth.StaticKeys = %q, want empty", cfg.Auth.StaticKeys)
	}
	if cfg.ObjectStore.Endpoint != "localhost:9000" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.Database.MaxOpenConns != 20 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Query.MaxRows != 1000 {
		t.Fatalf("Query.MaxRows = %d", cfg.Query.MaxRows)
	}
	if cfg.Query.Timeout != 30*time.Second {
		t.Fatalf("Query.Timeout = %s", cfg.Query.Timeout)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.ETL.BatchSize != 500 {
		t.Fatalf("ETL.BatchSize = %d", cfg.ETL.BatchSize)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"COSTNAV_PROFILE": "prod"})
	cfg, err := Load("costnav", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadTestProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"COSTNAV_PROFILE": "test"})
	cfg, err := Load("costnav", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":18080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"COSTNAV_PROFILE":               "test",
		"COSTNAV_SERVICE_NAME":          "costnav-custom",
		"COSTNAV_HTTP_ADDR":             ":9999",
		"COSTNAV_HTTP_READ_TIMEOUT":     "2s",
		"COSTNAV_HTTP_WRITE_TIMEOUT":    "3s",
		"COSTNAV_LOG_LEVEL":             "error",
		"COSTNAV_API_KEYS":              "k1:analytics",
		"COSTNAV_DATABASE_URL":          "postgres://example",
		"COSTNAV_DB_MAX_OPEN_CONNS":     "42",
		"COSTNAV_DB_MAX_IDLE_CONNS":     "17",
		"COSTNAV_DB_CONN_MAX_IDLE_TIME": "7m",
		"COSTNAV_DB_CONN_MAX_LIFETIME":  "90m",
		"COSTNAV_QUERY_TIMEOUT":         "12s",
		"COSTNAV_QUERY_MAX_ROWS":        "250",
		"COSTNAV_S3_ENDPOINT":           "s3.example.com",
		"COSTNAV_S3_BUCKET":             "costnav-prod",
		"COSTNAV_S3_REGION":             "us-west-2",
		"COSTNAV_S3_ACCESS_KEY":         "abc",
		"COSTNAV_S3_SECRET_KEY":         "def",
		"COSTNAV_S3_USE_SSL":            "true",
		"COSTNAV_S3_PREFIX":             "imports",
		"COSTNAV_AI_BASE_URL":           "https://api.example.com",
		"COSTNAV_AI_API_KEY":            "secret-key",
		"COSTNAV_AI_MODEL":              "gpt-4.1",
		"COSTNAV_AI_TEMPERATURE":        "0.3",
		"COSTNAV_AI_TIMEOUT":            "21s",
		"COSTNAV_ETL_RATING_SEED":       "1234",
		"COSTNAV_ETL_BATCH_SIZE":        "64",
	})
	cfg, err := Load("costnav", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "costnav-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP.WriteTimeout = %s", cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.StaticKeys != "k1:analytics" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
	if cfg.Database.URL != "postgres://example" {
		t.Fatalf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Database.MaxOpenConns != 42 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 17 {
		t.Fatalf("Database.MaxIdleConns = %d", cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxIdleTime != 7*time.Minute {
		t.Fatalf("Database.ConnMaxIdleTime = %s", cfg.Database.ConnMaxIdleTime)
	}
	if cfg.Database.ConnMaxLifetime != 90*time.Minute {
		t.Fatalf("Database.ConnMaxLifetime = %s", cfg.Database.ConnMaxLifetime)
	}
	if cfg.Query.Timeout != 12*time.Second {
		t.Fatalf("Query.Timeout = %s", cfg.Query.Timeout)
	}
	if cfg.Query.MaxRows != 250 {
		t.Fatalf("Query.MaxRows = %d", cfg.Query.MaxRows)
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" {
		t.Fatalf("ObjectStore.Endpoint = %q", cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.Bucket != "costnav-prod" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL = false, want true")
	}
	if cfg.ObjectStore.Prefix != "imports" {
		t.Fatalf("ObjectStore.Prefix = %q", cfg.ObjectStore.Prefix)
	}
	if cfg.AI.BaseURL != "https://api.example.com" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "gpt-4.1" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.ETL.RatingSeed != 1234 {
		t.Fatalf("ETL.RatingSeed = %d", cfg.ETL.RatingSeed)
	}
	if cfg.ETL.BatchSize != 64 {
		t.Fatalf("ETL.BatchSize = %d", cfg.ETL.BatchSize)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"COSTNAV_PROFILE": "oops"},
		{"COSTNAV_HTTP_READ_TIMEOUT": "NaN"},
		{"COSTNAV_DB_MAX_OPEN_CONNS": "oops"},
		{"COSTNAV_QUERY_MAX_ROWS": "oops"},
		{"COSTNAV_QUERY_MAX_ROWS": "0"},
		{"COSTNAV_AI_TEMPERATURE": "bad"},
		{"COSTNAV_AI_TEMPERATURE": "3.5"},
		{"COSTNAV_ETL_RATING_SEED": "not-int"},
		{"COSTNAV_ETL_BATCH_SIZE": "-1"},
		{"COSTNAV_S3_USE_SSL": "not-bool"},
		{"COSTNAV_LOG_LEVEL": "verbose"},
		{"COSTNAV_DATABASE_URL": " "},
	}
	for _, env := range tests {
		_, err := Load("costnav", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
