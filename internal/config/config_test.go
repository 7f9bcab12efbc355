package config

import (
	"testing"
	"time"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{"STORE_BACKEND": "memory"})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Audit.RetentionDays != 90 {
		t.Errorf("Audit.RetentionDays = %d, want 90", cfg.Audit.RetentionDays)
	}
	if cfg.Audit.SweepCron != "0 3 * * *" {
		t.Errorf("Audit.SweepCron = %q, want \"0 3 * * *\"", cfg.Audit.SweepCron)
	}
	if cfg.Cache.RecipeSize != 256 {
		t.Errorf("Cache.RecipeSize = %d, want 256", cfg.Cache.RecipeSize)
	}
	if cfg.Cache.RecipeTTL != 5*time.Minute {
		t.Errorf("Cache.RecipeTTL = %v, want 5m", cfg.Cache.RecipeTTL)
	}
	if cfg.Sheets.MirrorEnabled() {
		t.Error("Sheets.MirrorEnabled() = true without credentials")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setEnvs(t, map[string]string{
		"STORE_BACKEND":        "mongo",
		"MONGODB_URI":          "mongodb://localhost:27017",
		"MONGODB_DB_NAME":      "packtrack_test",
		"APP_PORT":             "9090",
		"LOG_LEVEL":            "debug",
		"AUDIT_RETENTION_DAYS": "30",
		"RECIPE_CACHE_TTL":     "90s",
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Store.Backend != BackendMongo {
		t.Errorf("Store.Backend = %q, want mongo", cfg.Store.Backend)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Audit.RetentionDays != 30 {
		t.Errorf("Audit.RetentionDays = %d, want 30", cfg.Audit.RetentionDays)
	}
	if cfg.Cache.RecipeTTL != 90*time.Second {
		t.Errorf("Cache.RecipeTTL = %v, want 90s", cfg.Cache.RecipeTTL)
	}
}

func TestLoad_MongoBackendRequiresURI(t *testing.T) {
	setEnvs(t, map[string]string{
		"STORE_BACKEND": "mongo",
		"MONGODB_URI":   "",
	})

	if _, err := Load(""); err == nil {
		t.Error("Load() accepted the mongo backend without MONGODB_URI")
	}
}

func TestLoad_GridBackendRequiresTables(t *testing.T) {
	setEnvs(t, map[string]string{
		"STORE_BACKEND":                 "grid",
		"GRID_BASE_URL":                 "https://grid.example.com",
		"GRID_API_TOKEN":                "token",
		"GRID_TABLE_PRODUCTS":           "tbl1",
		"GRID_TABLE_PRODUCT_COMPONENTS": "tbl2",
		"GRID_TABLE_PACKAGING_RECORDS":  "tbl3",
		"GRID_TABLE_PACKAGING_ITEMS":    "tbl4",
		"GRID_TABLE_AUDIT_LOGS":         "",
	})

	if _, err := Load(""); err == nil {
		t.Error("Load() accepted the grid backend with a missing table id")
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	setEnvs(t, map[string]string{"STORE_BACKEND": "dynamo"})

	if _, err := Load(""); err == nil {
		t.Error("Load() accepted an unknown STORE_BACKEND")
	}
}

func TestLoad_InvalidRetention(t *testing.T) {
	setEnvs(t, map[string]string{
		"STORE_BACKEND":        "memory",
		"AUDIT_RETENTION_DAYS": "0",
	})

	if _, err := Load(""); err == nil {
		t.Error("Load() accepted AUDIT_RETENTION_DAYS=0")
	}
}

func TestSheets_MirrorEnabled(t *testing.T) {
	s := Sheets{CredentialsPath: "/tmp/creds.json", SpreadsheetID: "sheet-1"}
	if !s.MirrorEnabled() {
		t.Error("MirrorEnabled() = false with both fields set")
	}
	if (Sheets{SpreadsheetID: "sheet-1"}).MirrorEnabled() {
		t.Error("MirrorEnabled() = true without a credentials path")
	}
}
