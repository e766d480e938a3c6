// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	WhatsApp      WhatsAppConfig     `mapstructure:"whatsapp"`
	Vending       VendingConfig      `mapstructure:"vending"`
	Payment       PaymentConfig      `mapstructure:"payment"`
	Limits        LimitsConfig       `mapstructure:"limits"`
	RateLimit     RateLimitConfig    `mapstructure:"rate_limit"`
	Referral      ReferralConfig     `mapstructure:"referral"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Templates     TemplateConfig     `mapstructure:"templates"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
	AuditIndex string   `mapstructure:"audit_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Messaging Transport ---

// WhatsAppConfig holds Meta WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIVersion    string `mapstructure:"api_version"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	AccessToken   string `mapstructure:"access_token"`
	VerifyToken   string `mapstructure:"verify_token"`
	AppSecret     string `mapstructure:"app_secret"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

// --- External Providers ---

// VendingConfig holds settings for the airtime/data/bills vending provider.
type VendingConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// PaymentConfig holds settings for the virtual-account payment gateway.
type PaymentConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

// --- Domain Limits ---

// AmountBounds holds the inclusive min/max for one transaction class, in naira.
type AmountBounds struct {
	Min int64 `mapstructure:"min"`
	Max int64 `mapstructure:"max"`
}

// LimitsConfig feeds the intent classifier at startup. Inconsistent bounds
// (min > max) refuse to start rather than misbehave per message.
type LimitsConfig struct {
	Airtime           AmountBounds `mapstructure:"airtime"`
	Electricity       AmountBounds `mapstructure:"electricity"`
	DataGranularityMB int          `mapstructure:"data_granularity_mb"`
	Networks          []string     `mapstructure:"networks"`
	CableProviders    []string     `mapstructure:"cable_providers"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	PerHour   int `mapstructure:"per_hour"`
}

type ReferralConfig struct {
	BonusNaira int64 `mapstructure:"bonus_naira"`
}

// --- Notifications (AWS) ---
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled       bool   `mapstructure:"enabled"`
			AdminPhone    string `mapstructure:"admin_phone"`
			SMSSenderID   string `mapstructure:"sms_sender_id"`
			AlertTopicARN string `mapstructure:"alert_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type TemplateConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
