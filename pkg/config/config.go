// Package config loads and validates the server configuration from
// forge.yaml plus environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the fully-merged, validated server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	DevServer DevServerConfig `yaml:"dev_server"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WorkspaceConfig holds the session root and starter template location.
type WorkspaceConfig struct {
	Root        string `yaml:"root"`
	TemplateDir string `yaml:"template_dir"`
}

// LLMConfig selects provider models. The API key is read from APIKeyEnv
// at startup, never stored in YAML.
type LLMConfig struct {
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	ThinkingModel string `yaml:"thinking_model"`
	ImageModel    string `yaml:"image_model"`
}

// PipelineConfig holds the orchestration policy knobs.
type PipelineConfig struct {
	ExecuteConcurrency  int           `yaml:"execute_concurrency"`
	RepairConcurrency   int           `yaml:"repair_concurrency"`
	MaxRepairRetries    int           `yaml:"max_repair_retries"`
	ImportRegenAttempts int           `yaml:"import_regen_attempts"`
	ExecutorTimeout     time.Duration `yaml:"executor_timeout"`
}

// DevServerConfig holds preview-server settings.
type DevServerConfig struct {
	BasePort int    `yaml:"base_port"`
	Host     string `yaml:"host"`
}

// validate rejects configurations the server cannot run with.
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", cfg.Server.Port)
	}
	if cfg.Workspace.Root == "" {
		return fmt.Errorf("workspace.root is required")
	}
	if cfg.Pipeline.ExecuteConcurrency < 1 {
		return fmt.Errorf("pipeline.execute_concurrency must be at least 1")
	}
	if cfg.Pipeline.RepairConcurrency < 1 {
		return fmt.Errorf("pipeline.repair_concurrency must be at least 1")
	}
	if cfg.Pipeline.MaxRepairRetries < 0 {
		return fmt.Errorf("pipeline.max_repair_retries must not be negative")
	}
	if cfg.DevServer.BasePort <= 0 || cfg.DevServer.BasePort > 65535 {
		return fmt.Errorf("dev_server.base_port must be in 1..65535, got %d", cfg.DevServer.BasePort)
	}
	return nil
}
