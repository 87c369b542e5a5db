package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/beaconhillfe/bhfe-web/internal/log"
)

// Environments recognized by -environment. Anything but production shows the
// staging badge, blocks robots and surfaces unknown-block warnings.
const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int
	Environment       string

	HTTPPort    int
	AdminPort   int
	EnablePprof bool
	TrustedHops int
	HSTS        bool

	EnableTracing   bool
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSample     float64
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string

	WordPressURL    string
	GraphQLTimeout  time.Duration
	FaustSecret     string
	FaustSecretSSM  string
	PreviewMACKey   string
	PreviewKMSKeyID string
	SecureCookies   bool

	RevalidateContent  time.Duration
	RevalidateLists    time.Duration
	RevalidateSettings time.Duration
	CacheMaxEntries    int
	Prewarm            bool

	TemplateAliasesFile string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.StringVar(&c.Environment, "environment", EnvStaging, "production|staging|development")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.IntVar(&c.TrustedHops, "trusted-proxy-hops", 1, "proxies in front of the server whose X-Forwarded-For is trusted (0..4)")
	fs.BoolVar(&c.HSTS, "hsts", false, "Send Strict-Transport-Security")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.BoolVar(&c.OTLPInsecure, "otlp-insecure", true, "Use plaintext gRPC to the OTLP endpoint")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")

	fs.StringVar(&c.WordPressURL, "wordpress-url", "http://beacon-hill-staging.local", "WordPress base url; GraphQL is served at /graphql")
	fs.DurationVar(&c.GraphQLTimeout, "graphql-timeout", 10*time.Second, "timeout for a single GraphQL request")
	fs.StringVar(&c.FaustSecret, "faust-secret", "", "FaustWP secret key used to verify preview tokens")
	fs.StringVar(&c.FaustSecretSSM, "faust-secret-ssm-param", "", "ssm SecureString holding the FaustWP secret (overrides -faust-secret)")
	fs.StringVar(&c.PreviewMACKey, "preview-mac-key", "", "local HMAC key for signing preview cookies")
	fs.StringVar(&c.PreviewKMSKeyID, "preview-kms-key-id", "", "KMS HMAC key id/ARN for signing preview cookies (overrides -preview-mac-key)")
	fs.BoolVar(&c.SecureCookies, "secure-cookies", true, "Set the Secure attribute on preview cookies")

	fs.DurationVar(&c.RevalidateContent, "revalidate-content", 60*time.Second, "page cache lifetime for content pages")
	fs.DurationVar(&c.RevalidateLists, "revalidate-lists", 300*time.Second, "page cache lifetime for listings (courses, pages)")
	fs.DurationVar(&c.RevalidateSettings, "revalidate-settings", time.Hour, "cache lifetime for site settings")
	fs.IntVar(&c.CacheMaxEntries, "cache-max-entries", 2048, "maximum cached pages")
	fs.BoolVar(&c.Prewarm, "prewarm", true, "Render known page and course uris into the cache at startup")

	fs.StringVar(&c.TemplateAliasesFile, "template-aliases-file", "", "YAML file mapping extra template hints onto registered templates")

	fs.Float64Var(&c.RateLimitRPS, "rate-limit-rps", 20, "per-client request rate (0 disables)")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 40, "per-client burst")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		envVal, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s", f.Name, f.Value.String(), key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

// EnvKey returns the environment variable consulted for a flag.
func EnvKey(prefix, flagName string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(flagName), "-", "_")
}

// IsProduction reports whether the app runs with production behavior.
func (c App) IsProduction() bool { return c.Environment == EnvProduction }

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	errs = append(errs, validatePorts(c.HTTPPort, c.AdminPort)...)
	if c.TrustedHops < 0 || c.TrustedHops > 4 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..4 (got %d)", c.TrustedHops))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}
	switch c.Environment {
	case EnvProduction, EnvStaging, EnvDevelopment:
	default:
		errs = append(errs, fmt.Errorf("invalid ENVIRONMENT %q (production|staging|development)", c.Environment))
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}
	if c.EnablePyroscope {
		if !isAbsURL(c.PyroServer) {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL when ENABLE_PYROSCOPE=true (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	if !isAbsURL(c.WordPressURL) {
		errs = append(errs, fmt.Errorf("WORDPRESS_URL must be an absolute http(s) URL (got %q)", c.WordPressURL))
	}
	if c.GraphQLTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GRAPHQL_TIMEOUT must be positive (got %s)", c.GraphQLTimeout))
	}
	if c.IsProduction() && c.PreviewMACKey == "" && c.PreviewKMSKeyID == "" {
		errs = append(errs, fmt.Errorf("PREVIEW_MAC_KEY or PREVIEW_KMS_KEY_ID required in production"))
	}
	if c.PreviewMACKey != "" && len(c.PreviewMACKey) < 32 {
		errs = append(errs, fmt.Errorf("PREVIEW_MAC_KEY must be at least 32 bytes"))
	}

	for name, d := range map[string]time.Duration{
		"REVALIDATE_CONTENT":  c.RevalidateContent,
		"REVALIDATE_LISTS":    c.RevalidateLists,
		"REVALIDATE_SETTINGS": c.RevalidateSettings,
	} {
		if d < time.Second {
			errs = append(errs, fmt.Errorf("%s must be at least 1s (got %s)", name, d))
		}
	}
	if c.CacheMaxEntries < 1 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must be positive (got %d)", c.CacheMaxEntries))
	}

	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be >= 0 (got %v)", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 1 when rate limiting is on"))
	}

	return errors.Join(errs...)
}

func validatePorts(httpPort, adminPort int) []error {
	var errs []error
	if httpPort < 1 || httpPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", httpPort))
	}
	if adminPort < 1 || adminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", adminPort))
	}
	if httpPort == adminPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", httpPort))
	}
	return errs
}

func isAbsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
