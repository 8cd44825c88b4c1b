package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SakshiM22/secure-vault/internal/flagx"
)

// parseFlags overlays cfg with command-line flags. Unknown arguments are
// dropped by flagx.FilterArgs first.
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN, or "memory"
//	-s string   JWT HMAC secret
//	-k string   file encryption secret
//	-t int      session token validity, minutes
//	-o string   blob backend: fs or s3
//	-f string   blob directory for the fs backend
//	-w string   work directory for temporary plaintext
//	-m int      maximum upload size, MiB
//	-x string   clamd addresses, comma separated
//	-n string   NATS url for the audit mirror
//	-l string   log backend: slog, zap or zerolog
//	-u, -p, -b, -g, -e   S3 user, password, bucket, region and endpoint
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-k", "-t", "-o", "-f", "-w", "-m", "-x", "-n", "-l", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddrGRPC, "a", cfg.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "jwt secret key")
	fs.StringVar(&cfg.FileSecret, "k", cfg.FileSecret, "file encryption secret")
	tokenTTL := fs.Int("t", int(cfg.TokenTTL.Minutes()), "token validity (in minutes)")

	fs.StringVar(&cfg.BlobBackend, "o", cfg.BlobBackend, "blob backend (fs or s3)")
	fs.StringVar(&cfg.BlobDir, "f", cfg.BlobDir, "blob directory")
	fs.StringVar(&cfg.WorkDir, "w", cfg.WorkDir, "work directory")
	maxUpload := fs.Int64("m", cfg.MaxUploadSize>>20, "maximum upload size (in MiB)")
	clamd := fs.String("x", strings.Join(cfg.ClamdAddrs, ","), "clamd addresses, comma separated")
	fs.StringVar(&cfg.NATSURL, "n", cfg.NATSURL, "NATS url")
	fs.StringVar(&cfg.LogBackend, "l", cfg.LogBackend, "log backend")

	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// derived values only change when their flag was given, so a finer
	// setting from JSON or env survives
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.TokenTTL = time.Duration(*tokenTTL) * time.Minute
		case "m":
			cfg.MaxUploadSize = *maxUpload << 20
		case "x":
			cfg.ClamdAddrs = splitList(*clamd)
		}
	})
	return nil
}
