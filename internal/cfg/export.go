package cfg

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/log"
)

// Export configures the static export command.
type Export struct {
	LogJSON        bool
	LogLevel       string
	Environment    string
	WordPressURL   string
	GraphQLTimeout time.Duration
	Bucket         string
	Prefix         string
	SSMParam       string
	DryRunPath     string
	Concurrency    int
	DiscoverLinks  bool
}

func RegisterExport(fs *flag.FlagSet, c *Export) {
	fs.BoolVar(&c.LogJSON, "log-json", false, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.Environment, "environment", EnvProduction, "environment the bundle is rendered for")
	fs.StringVar(&c.WordPressURL, "wordpress-url", "http://beacon-hill-staging.local", "WordPress base url")
	fs.DurationVar(&c.GraphQLTimeout, "graphql-timeout", 30*time.Second, "timeout for a single GraphQL request")
	fs.StringVar(&c.Bucket, "export-s3-bucket", "", "s3 bucket receiving site bundles")
	fs.StringVar(&c.Prefix, "export-s3-prefix", "apps/bhfe-web/site/bundles", "s3 key prefix for site bundles")
	fs.StringVar(&c.SSMParam, "export-ssm-param", "/app/bhfe-web/site/release/id", "ssm parameter updated with the bundle hash")
	fs.StringVar(&c.DryRunPath, "dry-run", "", "write the bundle to this path instead of publishing")
	fs.IntVar(&c.Concurrency, "concurrency", 4, "pages rendered in parallel")
	fs.BoolVar(&c.DiscoverLinks, "discover-links", true, "Also export local pages and assets linked from rendered pages")
}

func ValidateExport(c Export) error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	switch c.Environment {
	case EnvProduction, EnvStaging, EnvDevelopment:
	default:
		errs = append(errs, fmt.Errorf("invalid ENVIRONMENT %q (production|staging|development)", c.Environment))
	}
	if !isAbsURL(c.WordPressURL) {
		errs = append(errs, fmt.Errorf("WORDPRESS_URL must be an absolute http(s) URL (got %q)", c.WordPressURL))
	}
	if c.DryRunPath == "" {
		if c.Bucket == "" {
			errs = append(errs, fmt.Errorf("EXPORT_S3_BUCKET is required unless -dry-run is set"))
		}
		if c.Prefix == "" {
			errs = append(errs, fmt.Errorf("EXPORT_S3_PREFIX is required unless -dry-run is set"))
		}
		if c.SSMParam == "" {
			errs = append(errs, fmt.Errorf("EXPORT_SSM_PARAM is required unless -dry-run is set"))
		}
	}
	if c.Concurrency < 1 || c.Concurrency > 32 {
		errs = append(errs, fmt.Errorf("CONCURRENCY must be 1..32 (got %d)", c.Concurrency))
	}
	return errors.Join(errs...)
}
