// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like WHATSAPP_ACCESS_TOKEN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations (running from different directories).
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.WhatsApp.AccessToken == "" {
		if val := os.Getenv("WHATSAPP_ACCESS_TOKEN"); val != "" {
			cfg.WhatsApp.AccessToken = val
		}
	}
	if cfg.WhatsApp.VerifyToken == "" {
		if val := os.Getenv("WHATSAPP_VERIFY_TOKEN"); val != "" {
			cfg.WhatsApp.VerifyToken = val
		}
	}
	if cfg.WhatsApp.AppSecret == "" {
		if val := os.Getenv("WHATSAPP_APP_SECRET"); val != "" {
			cfg.WhatsApp.AppSecret = val
		}
	}
	if cfg.WhatsApp.PhoneNumberID == "" {
		if val := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); val != "" {
			cfg.WhatsApp.PhoneNumberID = val
		}
	}
	if cfg.Vending.APIKey == "" {
		if val := os.Getenv("VENDING_API_KEY"); val != "" {
			cfg.Vending.APIKey = val
		}
	}
	if cfg.Payment.APIKey == "" {
		if val := os.Getenv("PAYMENT_API_KEY"); val != "" {
			cfg.Payment.APIKey = val
		}
	}
	if cfg.Payment.WebhookSecret == "" {
		if val := os.Getenv("PAYMENT_WEBHOOK_SECRET"); val != "" {
			cfg.Payment.WebhookSecret = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "forbill-bot"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Database.Elasticsearch.AuditIndex == "" {
		cfg.Database.Elasticsearch.AuditIndex = "forbill-webhook-logs"
	}

	if cfg.WhatsApp.BaseURL == "" {
		cfg.WhatsApp.BaseURL = "https://graph.facebook.com"
	}
	if cfg.WhatsApp.APIVersion == "" {
		cfg.WhatsApp.APIVersion = "v18.0"
	}
	if cfg.WhatsApp.Timeout == 0 {
		cfg.WhatsApp.Timeout = 30000
	}

	if cfg.Vending.Timeout == 0 {
		cfg.Vending.Timeout = 30000
	}
	if cfg.Vending.MaxRetries == 0 {
		cfg.Vending.MaxRetries = 2
	}
	if cfg.Payment.Timeout == 0 {
		cfg.Payment.Timeout = 30000
	}

	if cfg.Limits.Airtime.Min == 0 {
		cfg.Limits.Airtime.Min = 50
	}
	if cfg.Limits.Airtime.Max == 0 {
		cfg.Limits.Airtime.Max = 50000
	}
	if cfg.Limits.Electricity.Min == 0 {
		cfg.Limits.Electricity.Min = 100
	}
	if cfg.Limits.Electricity.Max == 0 {
		cfg.Limits.Electricity.Max = 100000
	}
	if cfg.Limits.DataGranularityMB == 0 {
		cfg.Limits.DataGranularityMB = 100
	}
	if len(cfg.Limits.Networks) == 0 {
		cfg.Limits.Networks = []string{"mtn", "glo", "airtel", "9mobile"}
	}
	if len(cfg.Limits.CableProviders) == 0 {
		cfg.Limits.CableProviders = []string{"dstv", "gotv", "startimes"}
	}

	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 20
	}
	if cfg.RateLimit.PerHour == 0 {
		cfg.RateLimit.PerHour = 500
	}
	if cfg.Referral.BonusNaira == 0 {
		cfg.Referral.BonusNaira = 100
	}

	if cfg.Templates.RegistryPath == "" {
		cfg.Templates.RegistryPath = "configs/reply-templates.json"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Limits.Airtime.Min > cfg.Limits.Airtime.Max {
		return fmt.Errorf("limits.airtime: min (%d) > max (%d)",
			cfg.Limits.Airtime.Min, cfg.Limits.Airtime.Max)
	}
	if cfg.Limits.Electricity.Min > cfg.Limits.Electricity.Max {
		return fmt.Errorf("limits.electricity: min (%d) > max (%d)",
			cfg.Limits.Electricity.Min, cfg.Limits.Electricity.Max)
	}
	if cfg.Limits.DataGranularityMB <= 0 {
		return fmt.Errorf("limits.data_granularity_mb must be positive, got %d",
			cfg.Limits.DataGranularityMB)
	}
	if len(cfg.Limits.Networks) == 0 {
		return fmt.Errorf("limits.networks must not be empty")
	}
	if len(cfg.Limits.CableProviders) == 0 {
		return fmt.Errorf("limits.cable_providers must not be empty")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	return nil
}
