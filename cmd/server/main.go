package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/beaconhillfe/bhfe-web/internal/blocks"
	"github.com/beaconhillfe/bhfe-web/internal/cfg"
	"github.com/beaconhillfe/bhfe-web/internal/cryptoutil"
	"github.com/beaconhillfe/bhfe-web/internal/health"
	"github.com/beaconhillfe/bhfe-web/internal/httpmw"
	"github.com/beaconhillfe/bhfe-web/internal/httpserver"
	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/metrics"
	"github.com/beaconhillfe/bhfe-web/internal/opshttp"
	"github.com/beaconhillfe/bhfe-web/internal/otelx"
	"github.com/beaconhillfe/bhfe-web/internal/pagecache"
	"github.com/beaconhillfe/bhfe-web/internal/preview"
	"github.com/beaconhillfe/bhfe-web/internal/prof"
	"github.com/beaconhillfe/bhfe-web/internal/ratelimit"
	"github.com/beaconhillfe/bhfe-web/internal/site"
	"github.com/beaconhillfe/bhfe-web/internal/templates"
	v "github.com/beaconhillfe/bhfe-web/internal/version"
	"github.com/beaconhillfe/bhfe-web/internal/webassets"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// drainPeriod is how long the shutdown gate stays closed before listeners
// stop, so the load balancer notices and in-flight requests finish.
const drainPeriod = 60 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Get build/version info
	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildID, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	// Fill in config from environment variables with prefix BHFE_ and validate
	cfg.FillFromEnv(flag.CommandLine, "BHFE_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	production := conf.IsProduction()

	// Setup logging
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		Environment:       conf.Environment,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildID,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"environment", conf.Environment,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"wordpress_url", conf.WordPressURL,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"prewarm", conf.Prewarm,
		"cache_max_entries", conf.CacheMaxEntries,
		"rate_limit_rps", conf.RateLimitRPS,
		"preview_kms", conf.PreviewKMSKeyID != "",
	)

	// Setup pyroscope profiling
	stopProf, profErr := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":         v.AppName,
			"component":   "server",
			"version":     vi.Version,
			"commit":      vi.Commit,
			"environment": conf.Environment,
		},
	})
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// Setup otel for tracing
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:     conf.EnableTracing,
		Endpoint:    conf.OTLPEndpoint,
		Insecure:    conf.OTLPInsecure,
		Sample:      conf.TraceSample,
		Service:     v.AppName,
		Component:   "server",
		Version:     vi.Version,
		Environment: conf.Environment,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", vi)
	m.SetProfilingActive(conf.EnablePyroscope && profErr == nil)

	// AWS is only needed for the faust secret and the KMS preview key
	var awsCfg aws.Config
	if conf.FaustSecretSSM != "" || conf.PreviewKMSKeyID != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx)
		if err != nil {
			L.Error(ctx, err, "failed to load AWS config")
			os.Exit(1)
		}
	}

	faustSecret := conf.FaustSecret
	if conf.FaustSecretSSM != "" {
		faustSecret, err = loadParameter(ctx, ssm.NewFromConfig(awsCfg), conf.FaustSecretSSM)
		if err != nil {
			L.Error(ctx, err, "failed to load faust secret", "ssm_param", conf.FaustSecretSSM)
			os.Exit(1)
		}
	}
	if faustSecret == "" {
		L.Warn(ctx, "no faust secret configured, preview tokens cannot be verified")
	}

	signer, err := previewSigner(ctx, L, conf, awsCfg)
	if err != nil {
		L.Error(ctx, err, "failed to set up preview signing")
		os.Exit(1)
	}

	// WordPress client
	client, err := wp.New(wp.Options{
		BaseURL:     conf.WordPressURL,
		Timeout:     conf.GraphQLTimeout,
		FaustSecret: faustSecret,
		Logger:      L,
		Metrics:     m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create wordpress client")
		os.Exit(1)
	}

	// block renderer and page templates
	br := blocks.NewRenderer(blocks.NewCoreRegistry(), blocks.Options{
		Logger:      L,
		Metrics:     m,
		Development: !production,
	})
	pages, err := templates.NewPages(br, webassets.TemplatesFS())
	if err != nil {
		L.Error(ctx, err, "failed to parse page templates")
		os.Exit(1)
	}
	registry := templates.DefaultRegistry(pages)
	if conf.TemplateAliasesFile != "" {
		n, err := loadAliases(registry, conf.TemplateAliasesFile)
		if err != nil {
			L.Error(ctx, err, "failed to load template aliases", "file", conf.TemplateAliasesFile)
			os.Exit(1)
		}
		L.Info(ctx, "loaded template aliases", "file", conf.TemplateAliasesFile, "aliases", n)
	}
	resolver := templates.NewResolver(registry, pages.Default(), templates.ResolverOptions{Logger: L, Metrics: m})

	cache := pagecache.New(pagecache.Options{
		MaxEntries: conf.CacheMaxEntries,
		Logger:     L,
		Metrics:    m,
	})

	s, err := site.New(site.Options{
		Logger:      L,
		Metrics:     m,
		Source:      client,
		Templates:   resolver,
		Cache:       cache,
		Preview:     preview.NewManager(signer, preview.Options{Secure: conf.SecureCookies}),
		TemplatesFS: webassets.TemplatesFS(),
		StaticFS:    webassets.StaticFS(),
		FallbackFS:  webassets.FallbackFS(),
		Production:  production,
		Revalidate: site.Revalidate{
			Content:  conf.RevalidateContent,
			Lists:    conf.RevalidateLists,
			Settings: conf.RevalidateSettings,
		},
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site")
		os.Exit(1)
	}

	// setup toggle for server shutdown
	var gate health.ShutdownGate

	// ready once wordpress answered, or right away when prewarm is off
	upstream := health.NewLatch("waiting for wordpress")
	readiness := health.All(gate.Probe(), upstream.Probe())
	if conf.Prewarm {
		go warmUp(ctx, L, client, s, upstream)
	} else {
		upstream.Open()
	}

	var rateLimitMW func(next http.Handler) http.Handler
	if conf.RateLimitRPS > 0 {
		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
			ratelimit.WithExempt("/static/", "/-/"),
			// increment prometheus counter on each denied request
			ratelimit.WithOnDenied(func(ip string) {
				m.IncRateLimitDenied()
			}),
			// only log the first time an ip is denied each time it is cleaned from the bucket
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "rate limit triggered", "ip", ip)
			}),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
			}),
		)
		rateLimitMW = limiter.Middleware
	}

	// start site http server
	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHTTPPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  rateLimitMW,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		Security: httpmw.SecurityOptions{
			ImageOrigins: []string{strings.TrimRight(conf.WordPressURL, "/")},
			FrameOrigins: httpmw.DefaultFrameOrigins,
			HSTS:         conf.HSTS,
		},
		Health:    health.Fixed(true, ""),
		Readiness: readiness,
		Version:   vi.Version,
		Commit:    vi.Commit,
		Routes:    s.Routes,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener port")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// start admin/ops listener to serve metrics, health checks and pprof
	// requests from public ips are rejected in middleware
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
		OnPanic:     m.IncHTTPPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	// notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err)
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	// fail health checks to drain connections
	gate.Set("draining")
	L.Info(bg, "shutdown gate closed, draining", "period", drainPeriod.String())

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainPeriod):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "app http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	cache.Wait()
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

// warmUp waits for WordPress to answer, opens the readiness latch and then
// renders every known page into the cache.
func warmUp(ctx context.Context, L log.Logger, client *wp.Client, s *site.Site, ready *health.Latch) {
	backoff := time.Second
	for {
		err := s.Ping(ctx)
		if err == nil {
			break
		}
		L.Warn(ctx, "wordpress not reachable yet", "err", err, "retry_in", backoff.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
	ready.Open()
	L.Info(ctx, "wordpress reachable, marked ready")

	uris, err := client.StaticURIs(ctx)
	if err != nil {
		L.Error(ctx, err, "list static uris for prewarm")
		return
	}
	if _, err := s.Prewarm(ctx, uris); err != nil {
		L.Warn(ctx, "prewarm finished with errors", "err", err)
	}
}

// previewSigner picks the cookie signer: KMS when configured, then the
// local key. Outside production a random key is generated so previews work
// for one process lifetime.
func previewSigner(ctx context.Context, L log.Logger, conf cfg.App, awsCfg aws.Config) (cryptoutil.Signer, error) {
	if conf.PreviewKMSKeyID != "" {
		return cryptoutil.NewKMSSigner(kms.NewFromConfig(awsCfg), conf.PreviewKMSKeyID), nil
	}
	key := []byte(conf.PreviewMACKey)
	if len(key) == 0 {
		if conf.IsProduction() {
			return nil, xerrors.New("no preview signing key configured")
		}
		key = make([]byte, cryptoutil.MinHMACKeyLen)
		if _, err := rand.Read(key); err != nil {
			return nil, xerrors.Wrap(err, "generate preview key")
		}
		L.Warn(ctx, "using an ephemeral preview key, preview sessions end on restart")
	}
	hs, err := cryptoutil.NewHMACSigner(key)
	if err != nil {
		return nil, err
	}
	return hs, nil
}

// loadParameter reads a SecureString parameter from SSM.
func loadParameter(ctx context.Context, client *ssm.Client, name string) (string, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}
	val := strings.TrimSpace(*out.Parameter.Value)
	if val == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}
	return val, nil
}

func loadAliases(reg *templates.Registry, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, xerrors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return reg.LoadAliases(f)
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
