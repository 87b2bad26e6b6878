package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/webapp/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (MinIO / localstack)
//	-u string   S3 access key
//	-p string   S3 secret key
//	-m string   SMTP host
//	-v bool     require email verification (use -v=false to disable)
//	-t int      verification token validity, seconds
//	-l string   log level
//	-f string   log file
//
// Only these flags are parsed; os.Args is filtered first so that the config
// file flag can coexist. A parse error panics.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-b", "-g", "-e", "-u", "-p", "-m", "-v", "-t", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket for profile pictures")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.BoolVar(&config.VerifyEmail, "v", config.VerifyEmail, "require email verification")
	ttl := fs.Int("t", int(config.VerificationTokenTTL.Seconds()), "verification token validity (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.VerificationTokenTTL = time.Duration(*ttl) * time.Second
}
