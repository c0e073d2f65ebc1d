package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/bkashgate/internal/flagx"
)

const defaultDotEnv = ".env"

// loadDotEnv loads the file named by -env, or ./.env when present, into the
// process environment. Variables already set in the environment win.
func loadDotEnv(args []string) error {
	path := flagx.EnvFile(args)
	explicit := path != ""
	if !explicit {
		path = defaultDotEnv
	}

	err := godotenv.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// parseEnv overlays environment variables onto config. Unset variables keep
// the current value.
func parseEnv(config *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	var errs []error
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	boolean("BKASH_SANDBOX", &config.Sandbox)
	str("SANDBOX_BASE_URL", &config.SandboxBaseURL)
	str("LIVE_BASE_URL", &config.LiveBaseURL)
	str("BKASH_VERSION", &config.Version)

	str("BKASH_APP_KEY", &config.AppKey)
	str("BKASH_APP_SECRET", &config.AppSecret)
	str("BKASH_USERNAME", &config.Username)
	str("BKASH_PASSWORD", &config.Password)

	str("BKASH_DEFAULT_CURRENCY", &config.DefaultCurrency)
	str("BKASH_DEFAULT_INTENT", &config.DefaultIntent)
	duration("BKASH_TOKEN_LIFETIME", &config.TokenLifetime)
	duration("BKASH_HTTP_TIMEOUT", &config.HTTPTimeout)

	str("BKASH_SUCCESS_URL", &config.SuccessRedirectURL)
	str("BKASH_FAILED_URL", &config.FailedRedirectURL)
	boolean("BKASH_EVENT_PAYMENT_SUCCESS", &config.PaymentSuccessEvent)

	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_HEALTH_ADDR", &config.GRPCHealthAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("TOKEN_CACHE_DSN", &config.TokenCacheDSN)
	str("TOKEN_CACHE_SECRET", &config.TokenCacheSecret)

	if v, ok := lookup("KAFKA_BROKERS"); ok {
		config.KafkaBrokers = splitList(v)
	}
	str("KAFKA_PAYMENTS_TOPIC", &config.KafkaTopic)
	str("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", &config.OTLPEndpoint)

	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FORMAT", &config.LogFormat)

	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)

	return errors.Join(errs...)
}

// parseSecondsOrDuration accepts a bare integer as seconds ("3600") or a Go
// duration string ("1h").
func parseSecondsOrDuration(v string) (time.Duration, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
