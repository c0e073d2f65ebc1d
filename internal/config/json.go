package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/bkashgate/internal/flagx"
	"github.com/dmitrijs2005/bkashgate/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Pointer and zero
// fields are treated as "not set" so a partial file only overrides what it
// names.
type JsonConfig struct {
	Sandbox        *bool  `json:"sandbox"`
	SandboxBaseURL string `json:"sandbox_base_url"`
	LiveBaseURL    string `json:"live_base_url"`
	Version        string `json:"version"`

	AppKey    string `json:"app_key"`
	AppSecret string `json:"app_secret"`
	Username  string `json:"username"`
	Password  string `json:"password"`

	DefaultCurrency      string         `json:"default_currency"`
	DefaultIntent        string         `json:"default_intent"`
	TokenLifetime        timex.Duration `json:"token_lifetime"`
	RefreshTokenLifetime timex.Duration `json:"refresh_token_lifetime"`
	HTTPTimeout          timex.Duration `json:"http_timeout"`

	SuccessRedirectURL  string `json:"success_redirect_url"`
	FailedRedirectURL   string `json:"failed_redirect_url"`
	PaymentSuccessEvent *bool  `json:"payment_success_event"`

	HTTPAddr         string `json:"http_addr"`
	GRPCHealthAddr   string `json:"grpc_health_addr"`
	DatabaseDSN      string `json:"database_dsn"`
	TokenCacheDSN    string `json:"token_cache_dsn"`
	TokenCacheSecret string `json:"token_cache_secret"`

	KafkaBrokers []string `json:"kafka_brokers"`
	KafkaTopic   string   `json:"kafka_topic"`
	OTLPEndpoint string   `json:"otlp_endpoint"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
}

// parseJSON overlays the file named by -c/-config onto config. Without the
// flag nothing is loaded.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	if c.Sandbox != nil {
		config.Sandbox = *c.Sandbox
	}
	setString(&config.SandboxBaseURL, c.SandboxBaseURL)
	setString(&config.LiveBaseURL, c.LiveBaseURL)
	setString(&config.Version, c.Version)

	setString(&config.AppKey, c.AppKey)
	setString(&config.AppSecret, c.AppSecret)
	setString(&config.Username, c.Username)
	setString(&config.Password, c.Password)

	setString(&config.DefaultCurrency, c.DefaultCurrency)
	setString(&config.DefaultIntent, c.DefaultIntent)
	if c.TokenLifetime.Duration > 0 {
		config.TokenLifetime = c.TokenLifetime.Duration
	}
	if c.RefreshTokenLifetime.Duration > 0 {
		config.RefreshTokenLifetime = c.RefreshTokenLifetime.Duration
	}
	if c.HTTPTimeout.Duration > 0 {
		config.HTTPTimeout = c.HTTPTimeout.Duration
	}

	setString(&config.SuccessRedirectURL, c.SuccessRedirectURL)
	setString(&config.FailedRedirectURL, c.FailedRedirectURL)
	if c.PaymentSuccessEvent != nil {
		config.PaymentSuccessEvent = *c.PaymentSuccessEvent
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.TokenCacheDSN, c.TokenCacheDSN)
	setString(&config.TokenCacheSecret, c.TokenCacheSecret)

	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaTopic, c.KafkaTopic)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)

	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
}
