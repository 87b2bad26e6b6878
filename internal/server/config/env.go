package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// parseEnv overlays values from the environment. DATABASE_DSN wins over the
// DB_HOST / DB_PORT / DB_USER / DB_PASSWORD / DB_NAME parts; the parts are
// only used when DB_HOST is set. Malformed numeric, boolean or duration
// values are ignored.
func parseEnv(config *Config, lookup lookupFunc) {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	boolean := func(dst *bool, key string) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	duration := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str(&config.HTTPAddr, "HTTP_ADDR")
	if port, ok := lookup("PORT"); ok && port != "" {
		config.HTTPAddr = ":" + port
	}

	if host, ok := lookup("DB_HOST"); ok && host != "" {
		config.DatabaseDSN = dsnFromParts(host, lookup)
	}
	str(&config.DatabaseDSN, "DATABASE_DSN")

	str(&config.S3Bucket, "BUCKET_NAME", "bucket_name")
	str(&config.S3Region, "AWS_REGION", "aws_region")
	str(&config.S3RootUser, "S3_ROOT_USER")
	str(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	str(&config.S3BaseEndpoint, "S3_ENDPOINT")
	boolean(&config.S3UsePathStyle, "S3_USE_PATH_STYLE")

	str(&config.SMTPHost, "SMTP_HOST")
	if v, ok := lookup("SMTP_PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			config.SMTPPort = n
		}
	}
	str(&config.SMTPUser, "SMTP_USER")
	str(&config.SMTPPassword, "SMTP_PASSWORD")
	str(&config.MailFrom, "MAIL_FROM")

	boolean(&config.VerifyEmail, "VERIFY_EMAIL")
	duration(&config.VerificationTokenTTL, "VERIFICATION_TOKEN_TTL")
	str(&config.VerificationBaseURL, "VERIFICATION_BASE_URL")

	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxUploadBytes = n
		}
	}
	duration(&config.HealthCheckInterval, "HEALTH_CHECK_INTERVAL")
	duration(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT")

	str(&config.LogLevel, "LOG_LEVEL")
	str(&config.LogFile, "LOG_FILE")
	str(&config.MetricsNamespace, "METRICS_NAMESPACE")
	boolean(&config.InstanceMetadata, "INSTANCE_METADATA")
}

func dsnFromParts(host string, lookup lookupFunc) string {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(get("DB_USER", "postgres"), get("DB_PASSWORD", "")),
		Host:     fmt.Sprintf("%s:%s", host, get("DB_PORT", "5432")),
		Path:     "/" + get("DB_NAME", "webapp"),
		RawQuery: "sslmode=" + get("DB_SSLMODE", "disable"),
	}
	return u.String()
}
