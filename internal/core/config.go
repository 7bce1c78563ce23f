package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/kinface/internal/verify"
)

// CommandConfig represents a generic upload-pipeline command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// VerifierConfig points at the remote face-recognition service.
type VerifierConfig struct {
	BaseURL         string `yaml:"baseUrl"`
	TimeoutSeconds  int    `yaml:"timeoutSeconds"`
	DetectorBackend string `yaml:"detectorBackend"`
}

// SessionConfig controls the per-browser session store. An empty redis
// address selects the embedded store.
type SessionConfig struct {
	RedisAddress string `yaml:"redisAddress"`
	TTLMinutes   int    `yaml:"ttlMinutes"`
}

// SampleImages holds the paths of the bundled family photos shown
// before the first "try it yourself" click.
type SampleImages struct {
	Father string `yaml:"father"`
	Mother string `yaml:"mother"`
	Child  string `yaml:"child"`
}

type ServiceConfig struct {
	Port           int             `yaml:"port"`
	Database       Database        `yaml:"database"`
	Verifier       VerifierConfig  `yaml:"verifier"`
	Session        SessionConfig   `yaml:"session"`
	SampleImages   SampleImages    `yaml:"sampleImages"`
	ThumbnailWidth int             `yaml:"thumbnailWidth"`
	UploadCommands []CommandConfig `yaml:"uploadCommands"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.applyDefaultsAndValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func (config *ServiceConfig) applyDefaultsAndValidate() error {
	if config.Port <= 0 {
		return fmt.Errorf("port must be positive, got %d", config.Port)
	}
	if config.Verifier.BaseURL == "" {
		return fmt.Errorf("verifier baseUrl is required")
	}
	if config.Verifier.TimeoutSeconds <= 0 {
		// Cold model loads on the remote service are slow.
		config.Verifier.TimeoutSeconds = 120
	}
	if config.Verifier.DetectorBackend == "" {
		config.Verifier.DetectorBackend = verify.DefaultDetectorBackend
	}
	if config.Session.TTLMinutes <= 0 {
		config.Session.TTLMinutes = 60
	}
	if config.ThumbnailWidth <= 0 {
		config.ThumbnailWidth = 200
	}
	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
		config.Database.ConnectionString = ":memory:"
	}

	return validateCommands(config.UploadCommands)
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}
