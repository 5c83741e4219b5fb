// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the food-log responder.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultTimeout is the per-stage timeout in seconds for outbound calls
// (blob fetch, nutrition API, mail send). The handler runs inside a
// serverless invocation with a hard wall-clock limit, so every external
// call must be bounded.
const defaultTimeout = 20

// Config holds the complete application configuration.
type Config struct {
	Mail      MailConfig      `yaml:"mail"`
	Storage   StorageConfig   `yaml:"storage"`
	Nutrition NutritionConfig `yaml:"nutrition"`
	SES       SESConfig       `yaml:"ses"`
	Sender    string          `yaml:"sender"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// MailConfig holds the reply sender identity and the diary author's
// signature markers used to cut quoted trailers out of message bodies.
type MailConfig struct {
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
	UserName    string `yaml:"user_name"`
	UserAddress string `yaml:"user_address"`
}

// StorageConfig holds the S3 location where the mail receipt rule stores
// raw inbound e-mails.
type StorageConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Folder          string `yaml:"folder"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// NutritionConfig holds Nutritionix API credentials and behavior.
// Mode "parse" hits the natural/nutrients endpoint (parse only);
// mode "log" hits natural/sse, which also records the entry durably
// and requires the per-user API code.
type NutritionConfig struct {
	AppID          string `yaml:"app_id"`
	AppKey         string `yaml:"app_key"`
	APICode        string `yaml:"api_code"`
	BaseURL        string `yaml:"base_url"`
	Mode           string `yaml:"mode"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SESConfig holds AWS SES credentials for outbound mail.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// StorageConfigured returns true if the raw-mail bucket location is set.
func (c *Config) StorageConfigured() bool {
	return c.Storage.Region != "" && c.Storage.Bucket != ""
}

// SESConfigured returns true if SES can be used for outbound mail.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.Mail.FromAddress != ""
}

// LogModeEnabled returns true if nutrition entries should be durably
// logged rather than only parsed.
func (c *Config) LogModeEnabled() bool {
	return c.Nutrition.Mode == "log"
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Storage.Folder = "inbox"
	c.Storage.TimeoutSeconds = defaultTimeout
	c.Nutrition.BaseURL = "https://trackapi.nutritionix.com/v2"
	c.Nutrition.Mode = "parse"
	c.Nutrition.TimeoutSeconds = defaultTimeout
	c.SES.Region = "us-east-1"
	c.SES.TimeoutSeconds = defaultTimeout
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("EMAIL_FROM_NAME"); v != "" {
		c.Mail.FromName = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		c.Mail.FromAddress = v
	}
	if v := os.Getenv("EMAIL_USER_NAME"); v != "" {
		c.Mail.UserName = v
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		c.Mail.UserAddress = v
	}

	if v := os.Getenv("S3_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("S3_ACCESS_KEY_ID"); v != "" {
		c.Storage.AccessKeyID = v
	}
	if v := os.Getenv("S3_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("S3_BUCKET_FOLDER"); v != "" {
		c.Storage.Folder = v
	}
	if v := os.Getenv("S3_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Storage.TimeoutSeconds = n
		}
	}

	if v := os.Getenv("NIX_APP_ID"); v != "" {
		c.Nutrition.AppID = v
	}
	if v := os.Getenv("NIX_APP_KEY"); v != "" {
		c.Nutrition.AppKey = v
	}
	if v := os.Getenv("NIX_API_CODE"); v != "" {
		c.Nutrition.APICode = v
	}
	if v := os.Getenv("NIX_BASE_URL"); v != "" {
		c.Nutrition.BaseURL = v
	}
	if v := os.Getenv("NIX_MODE"); v != "" {
		c.Nutrition.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("NIX_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Nutrition.TimeoutSeconds = n
		}
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SES.TimeoutSeconds = n
		}
	}

	if v := os.Getenv("SENDER"); v != "" {
		c.Sender = strings.ToLower(v)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
