package cfg

import (
	"flag"
	"strings"
	"testing"
	"time"
)

func wantErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got <nil>", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("error %q does not contain %q", err.Error(), sub)
	}
}

// newTestConfig registers flags on a fresh FlagSet so tests never touch
// flag.CommandLine.
func newTestConfig(t *testing.T, args []string) (App, *flag.FlagSet) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	return c, fs
}

// --- Register

func TestRegister_Defaults(t *testing.T) {
	c, _ := newTestConfig(t, nil)

	if !c.LogJSON || c.LogLevel != "info" || c.StacktraceLevel != "error" {
		t.Errorf("log defaults: json=%v level=%q stack=%q", c.LogJSON, c.LogLevel, c.StacktraceLevel)
	}
	if c.HTTPPort != 8080 || c.AdminPort != 9000 {
		t.Errorf("ports: %d/%d", c.HTTPPort, c.AdminPort)
	}
	if c.TrustedHops != 1 || c.HSTS {
		t.Errorf("proxy defaults: hops=%d hsts=%v", c.TrustedHops, c.HSTS)
	}
	if c.Environment != EnvStaging {
		t.Errorf("Environment = %q", c.Environment)
	}
	if c.WordPressURL != "http://beacon-hill-staging.local" {
		t.Errorf("WordPressURL = %q", c.WordPressURL)
	}
	if c.RevalidateContent != 60*time.Second || c.RevalidateLists != 300*time.Second || c.RevalidateSettings != time.Hour {
		t.Errorf("revalidate defaults: %s %s %s", c.RevalidateContent, c.RevalidateLists, c.RevalidateSettings)
	}
	if !c.Prewarm || !c.SecureCookies {
		t.Error("Prewarm and SecureCookies default to true")
	}
}

func TestRegister_CLIOverrides(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-environment=production",
		"-wordpress-url=https://cms.example.org",
		"-revalidate-content=2m",
		"-faust-secret-ssm-param=/bhfe/faust",
		"-rate-limit-rps=0",
	})
	if !c.IsProduction() {
		t.Error("IsProduction should be true")
	}
	if c.WordPressURL != "https://cms.example.org" {
		t.Errorf("WordPressURL = %q", c.WordPressURL)
	}
	if c.RevalidateContent != 2*time.Minute {
		t.Errorf("RevalidateContent = %s", c.RevalidateContent)
	}
	if c.FaustSecretSSM != "/bhfe/faust" {
		t.Errorf("FaustSecretSSM = %q", c.FaustSecretSSM)
	}
	if c.RateLimitRPS != 0 {
		t.Errorf("RateLimitRPS = %v", c.RateLimitRPS)
	}
}

// --- FillFromEnv

func TestEnvKey(t *testing.T) {
	if got := EnvKey("BHFE_", "faust-secret-ssm-param"); got != "BHFE_FAUST_SECRET_SSM_PARAM" {
		t.Fatalf("EnvKey = %q", got)
	}
}

func TestFillFromEnv(t *testing.T) {
	pfx := "TESTCFG_"
	t.Setenv(pfx+"LOG_LEVEL", "debug")
	t.Setenv(pfx+"HTTP_PORT", "8088")
	t.Setenv(pfx+"WORDPRESS_URL", "https://wp.internal")
	t.Setenv(pfx+"REVALIDATE_LISTS", "10m")
	t.Setenv(pfx+"PREWARM", "false")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	_ = fs.Parse(nil)
	FillFromEnv(fs, pfx, nil)

	if c.LogLevel != "debug" || c.HTTPPort != 8088 {
		t.Errorf("env not applied: level=%q port=%d", c.LogLevel, c.HTTPPort)
	}
	if c.WordPressURL != "https://wp.internal" {
		t.Errorf("WordPressURL = %q", c.WordPressURL)
	}
	if c.RevalidateLists != 10*time.Minute {
		t.Errorf("RevalidateLists = %s", c.RevalidateLists)
	}
	if c.Prewarm {
		t.Error("Prewarm should be false from env")
	}
}

func TestFillFromEnv_CLITakesPrecedence(t *testing.T) {
	pfx := "TESTCFG_"
	t.Setenv(pfx+"HTTP_PORT", "7000")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	_ = fs.Parse([]string{"-http-port=9999"})

	var logged []string
	FillFromEnv(fs, pfx, func(f string, args ...any) { logged = append(logged, f) })

	if c.HTTPPort != 9999 {
		t.Fatalf("HTTPPort = %d, want cli value 9999", c.HTTPPort)
	}
	if len(logged) != 1 {
		t.Fatalf("expected one override log line, got %d", len(logged))
	}
}

func TestFillFromEnv_InvalidEnvIgnored(t *testing.T) {
	pfx := "TESTCFG_"
	t.Setenv(pfx+"HTTP_PORT", "not-a-number")
	t.Setenv(pfx+"GRAPHQL_TIMEOUT", "soon")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	_ = fs.Parse(nil)
	FillFromEnv(fs, pfx, nil)

	if c.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want default 8080", c.HTTPPort)
	}
	if c.GraphQLTimeout != 10*time.Second {
		t.Errorf("GraphQLTimeout = %s, want default", c.GraphQLTimeout)
	}
}

// --- Validate

func TestValidate_DefaultsOK(t *testing.T) {
	c, _ := newTestConfig(t, nil)
	if err := Validate(c); err != nil {
		t.Fatalf("Validate(defaults): %v", err)
	}
}

func TestValidate_ProductionNeedsPreviewKey(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-environment=production"})
	wantErrContains(t, Validate(c), "PREVIEW_MAC_KEY or PREVIEW_KMS_KEY_ID")

	c.PreviewKMSKeyID = "arn:aws:kms:us-east-2:111122223333:key/abc"
	if err := Validate(c); err != nil {
		t.Fatalf("Validate with kms key: %v", err)
	}
}

func TestValidate_InvalidCombined(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-http-port=0",
		"-admin-port=70000",
		"-log-level=nope",
		"-stacktrace-level=alsonope",
		"-trace-sample=2.0",
		"-enable-pyroscope=true",
		"-pyro-server=not-a-url",
		"-enable-tracing=true",
		"-otlp-endpoint=otel",
		"-max-error-links=0",
		"-environment=qa",
		"-wordpress-url=cms.local",
		"-preview-mac-key=short",
		"-revalidate-content=10ms",
		"-cache-max-entries=0",
		"-rate-limit-burst=0",
		"-trusted-proxy-hops=9",
	})

	err := Validate(c)
	for _, want := range []string{
		"invalid HTTP_PORT",
		"invalid ADMIN_PORT",
		"invalid LOG_LEVEL",
		"invalid STACKTRACE_LEVEL",
		"invalid TRACE_SAMPLE",
		"PYRO_SERVER must be a URL",
		"PYRO_TENANT required",
		"OTLP_ENDPOINT must be host:port",
		"MAX_ERROR_LINKS",
		"invalid ENVIRONMENT",
		"WORDPRESS_URL must be an absolute",
		"PREVIEW_MAC_KEY must be at least 32 bytes",
		"REVALIDATE_CONTENT must be at least 1s",
		"CACHE_MAX_ENTRIES",
		"RATE_LIMIT_BURST",
		"TRUSTED_PROXY_HOPS",
	} {
		wantErrContains(t, err, want)
	}
}

func TestValidate_SamePorts(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-http-port=9000", "-admin-port=9000"})
	wantErrContains(t, Validate(c), "must differ")
}

// --- Export

func TestValidateExport(t *testing.T) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var c Export
	RegisterExport(fs, &c)
	_ = fs.Parse(nil)

	err := ValidateExport(c)
	wantErrContains(t, err, "EXPORT_S3_BUCKET is required")

	c.DryRunPath = "/tmp/site.tar.gz"
	if err := ValidateExport(c); err != nil {
		t.Fatalf("dry run should not need a bucket: %v", err)
	}

	c.Concurrency = 0
	wantErrContains(t, ValidateExport(c), "CONCURRENCY")
}
