package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/webapp/internal/flagx"
	"github.com/dmitrijs2005/webapp/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Only fields present in
// the file override the current values; booleans are pointers for that reason.
type JsonConfig struct {
	HTTPAddr    string `json:"http_addr"`
	DatabaseDSN string `json:"database_dsn"`

	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3UsePathStyle *bool  `json:"s3_use_path_style"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"smtp_password"`
	MailFrom     string `json:"mail_from"`

	VerifyEmail          *bool          `json:"verify_email"`
	VerificationTokenTTL timex.Duration `json:"verification_token_ttl"`
	VerificationBaseURL  string         `json:"verification_base_url"`

	MaxUploadBytes      int64          `json:"max_upload_bytes"`
	HealthCheckInterval timex.Duration `json:"health_check_interval"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout"`

	LogLevel         string `json:"log_level"`
	LogFile          string `json:"log_file"`
	MetricsNamespace string `json:"metrics_namespace"`
	InstanceMetadata *bool  `json:"instance_metadata"`
}

// parseJson overlays values from the JSON file named by -c / -config in args.
// Nothing happens when no file is given. An unreadable or malformed file
// panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setBool(&config.S3UsePathStyle, c.S3UsePathStyle)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setBool(&config.VerifyEmail, c.VerifyEmail)
	if c.VerificationTokenTTL.Duration != 0 {
		config.VerificationTokenTTL = c.VerificationTokenTTL.Duration
	}
	setString(&config.VerificationBaseURL, c.VerificationBaseURL)
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.HealthCheckInterval.Duration != 0 {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
	setString(&config.MetricsNamespace, c.MetricsNamespace)
	setBool(&config.InstanceMetadata, c.InstanceMetadata)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
