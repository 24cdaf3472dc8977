package config

import "time"

// defaults returns the built-in configuration. User YAML overrides
// these field by field via the mergo merge in Load.
func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Workspace: WorkspaceConfig{
			Root:        "./workspaces",
			TemplateDir: "./template",
		},
		LLM: LLMConfig{
			APIKeyEnv:     "GOOGLE_API_KEY",
			Model:         "gemini-2.5-flash",
			ThinkingModel: "gemini-2.5-pro",
			ImageModel:    "gemini-2.0-flash-preview-image-generation",
		},
		Pipeline: PipelineConfig{
			ExecuteConcurrency:  5,
			RepairConcurrency:   3,
			MaxRepairRetries:    6,
			ImportRegenAttempts: 2,
			ExecutorTimeout:     60 * time.Second,
		},
		DevServer: DevServerConfig{
			BasePort: 5200,
			Host:     "localhost",
		},
	}
}
