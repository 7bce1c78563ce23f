package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jo-hoe/kinface/internal/verify"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 8080
verifier:
  baseUrl: "http://localhost:5000"
  timeoutSeconds: 30
  detectorBackend: "retinaface"
database:
  type: "sqlite"
  connectionString: ":memory:"
session:
  ttlMinutes: 30
thumbnailWidth: 160
uploadCommands:
  - name: NormalizeCommand
  - name: DownscaleCommand
    maxSide: 1024
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 8080 {
		t.Errorf("Expected port to be 8080, got %d", config.Port)
	}
	if config.Verifier.BaseURL != "http://localhost:5000" {
		t.Errorf("Expected verifier baseUrl, got %q", config.Verifier.BaseURL)
	}
	if config.Verifier.DetectorBackend != "retinaface" {
		t.Errorf("Expected detector retinaface, got %q", config.Verifier.DetectorBackend)
	}
	if config.Session.TTLMinutes != 30 {
		t.Errorf("Expected ttlMinutes 30, got %d", config.Session.TTLMinutes)
	}
	if config.ThumbnailWidth != 160 {
		t.Errorf("Expected thumbnailWidth 160, got %d", config.ThumbnailWidth)
	}
	if len(config.UploadCommands) != 2 {
		t.Fatalf("Expected 2 upload commands, got %d", len(config.UploadCommands))
	}
	if config.UploadCommands[1].Params["maxSide"] != 1024 {
		t.Errorf("Expected inline maxSide param, got %v", config.UploadCommands[1].Params)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	configPath := writeConfig(t, `port: 8080
verifier:
  baseUrl: "http://localhost:5000"
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Verifier.DetectorBackend != verify.DefaultDetectorBackend {
		t.Errorf("Expected default detector, got %q", config.Verifier.DetectorBackend)
	}
	if config.Verifier.TimeoutSeconds != 120 {
		t.Errorf("Expected default timeout 120s, got %d", config.Verifier.TimeoutSeconds)
	}
	if config.Session.TTLMinutes != 60 {
		t.Errorf("Expected default ttlMinutes 60, got %d", config.Session.TTLMinutes)
	}
	if config.ThumbnailWidth != 200 {
		t.Errorf("Expected default thumbnailWidth 200, got %d", config.ThumbnailWidth)
	}
	if config.Database.Type != "sqlite" || config.Database.ConnectionString != ":memory:" {
		t.Errorf("Expected in-memory sqlite default, got %+v", config.Database)
	}
}

func TestLoadConfig_MissingVerifier(t *testing.T) {
	configPath := writeConfig(t, `port: 8080`)

	if _, err := LoadConfig(configPath); err == nil {
		t.Fatal("Expected error for missing verifier baseUrl")
	}
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	configPath := writeConfig(t, `verifier:
  baseUrl: "http://localhost:5000"
`)

	if _, err := LoadConfig(configPath); err == nil {
		t.Fatal("Expected error for missing port")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	if _, err := LoadConfig("/path/that/does/not/exist/config.yaml"); err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "port: [not closed")

	if _, err := LoadConfig(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoadConfig_DuplicateCommandNames(t *testing.T) {
	configPath := writeConfig(t, `port: 8080
verifier:
  baseUrl: "http://localhost:5000"
uploadCommands:
  - name: NormalizeCommand
  - name: NormalizeCommand
`)

	if _, err := LoadConfig(configPath); err == nil {
		t.Fatal("Expected error for duplicate command names")
	}
}
