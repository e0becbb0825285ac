// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	window := cfg.Reconcile.DedupWindowSeconds
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Rules         RulesConfig         `yaml:"rules"`
	AI            AIConfig            `yaml:"ai"`
	Notify        NotifyConfig        `yaml:"notify"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReconcileConfig holds the default values of the runtime settings. Values
// stored in the settings table override these.
type ReconcileConfig struct {
	GateTTLSeconds        int    `yaml:"gate_ttl_seconds"`
	DedupEnabled          bool   `yaml:"dedup_enabled"`
	DedupWindowSeconds    int    `yaml:"dedup_window_seconds"`
	TransferRecognition   bool   `yaml:"transfer_recognition"`
	TransferWindowSeconds int    `yaml:"transfer_window_seconds"`
	AssetManagement       bool   `yaml:"asset_management"`
	AutoAssetMapping      bool   `yaml:"auto_asset_mapping"`
	AIBillRecognition     bool   `yaml:"ai_bill_recognition"`
	AICategoryRecognition bool   `yaml:"ai_category_recognition"`
	AIAssetMapping        bool   `yaml:"ai_asset_mapping"`
	RemarkTemplate        string `yaml:"remark_template"`
	DefaultBookName       string `yaml:"default_book_name"`
	DebugMode             bool   `yaml:"debug_mode"`
	QueueSize             int    `yaml:"queue_size"`
}

// RulesConfig lists rule files by scope
type RulesConfig struct {
	SystemFiles []string `yaml:"system_files"`
	UserFiles   []string `yaml:"user_files"`
}

// AIConfig selects and configures the AI provider
type AIConfig struct {
	Provider string `yaml:"provider"` // "openai", "gemini" or "" (disabled)
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// NotifyConfig configures outbound notifications
type NotifyConfig struct {
	WebhookURL     string `yaml:"webhook_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns a config with every default filled in
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 52045,
		},
		Storage: StorageConfig{
			DatabasePath: "reconciler.db",
		},
		Reconcile: ReconcileConfig{
			GateTTLSeconds:        300,
			DedupWindowSeconds:    180,
			TransferWindowSeconds: 120,
			RemarkTemplate:        "【商户名称】【商品名称】",
			DefaultBookName:       "默认账本",
			QueueSize:             64,
		},
		AI: AIConfig{
			Model: "gpt-4o-mini",
		},
		Notify: NotifyConfig{
			TimeoutSeconds: 5,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}

// Load reads and parses the config file. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${OPENAI_API_KEY})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := Defaults()

	cfg.Server.Host = getEnv("RECONCILER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("RECONCILER_PORT", cfg.Server.Port)
	if origins := os.Getenv("RECONCILER_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	cfg.Storage.DatabasePath = getEnv("RECONCILER_DB_PATH", cfg.Storage.DatabasePath)

	cfg.Reconcile.DedupEnabled = getEnvBool("RECONCILER_DEDUP", cfg.Reconcile.DedupEnabled)
	cfg.Reconcile.DedupWindowSeconds = getEnvInt("RECONCILER_DEDUP_WINDOW", cfg.Reconcile.DedupWindowSeconds)
	cfg.Reconcile.TransferRecognition = getEnvBool("RECONCILER_TRANSFER", cfg.Reconcile.TransferRecognition)
	cfg.Reconcile.TransferWindowSeconds = getEnvInt("RECONCILER_TRANSFER_WINDOW", cfg.Reconcile.TransferWindowSeconds)
	cfg.Reconcile.AssetManagement = getEnvBool("RECONCILER_ASSET_MANAGEMENT", cfg.Reconcile.AssetManagement)
	cfg.Reconcile.AutoAssetMapping = getEnvBool("RECONCILER_AUTO_ASSET_MAPPING", cfg.Reconcile.AutoAssetMapping)
	cfg.Reconcile.AIBillRecognition = getEnvBool("RECONCILER_AI_BILL", cfg.Reconcile.AIBillRecognition)
	cfg.Reconcile.AICategoryRecognition = getEnvBool("RECONCILER_AI_CATEGORY", cfg.Reconcile.AICategoryRecognition)
	cfg.Reconcile.AIAssetMapping = getEnvBool("RECONCILER_AI_ASSET", cfg.Reconcile.AIAssetMapping)
	cfg.Reconcile.DefaultBookName = getEnv("RECONCILER_DEFAULT_BOOK", cfg.Reconcile.DefaultBookName)

	if files := os.Getenv("RECONCILER_RULES"); files != "" {
		cfg.Rules.SystemFiles = strings.Split(files, ",")
	}
	if files := os.Getenv("RECONCILER_USER_RULES"); files != "" {
		cfg.Rules.UserFiles = strings.Split(files, ",")
	}

	cfg.AI.Provider = getEnv("AI_PROVIDER", "")
	cfg.AI.Model = getEnv("AI_MODEL", cfg.AI.Model)
	cfg.AI.APIKey = cfg.GetAPIKey("", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")

	cfg.Notify.WebhookURL = os.Getenv("RECONCILER_WEBHOOK_URL")

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", cfg.Observability.Logging.Format)

	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool accepts true/1/yes/on
func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return fallback
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.AI.APIKey, "OPENAI_API_KEY", "GEMINI_API_KEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}

	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}

// Addr returns host:port for the HTTP listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
