// Command export pre-renders the site and publishes it as a release bundle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-chi/chi/v5"

	"github.com/beaconhillfe/bhfe-web/internal/blocks"
	"github.com/beaconhillfe/bhfe-web/internal/cfg"
	"github.com/beaconhillfe/bhfe-web/internal/export"
	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/site"
	"github.com/beaconhillfe/bhfe-web/internal/templates"
	v "github.com/beaconhillfe/bhfe-web/internal/version"
	"github.com/beaconhillfe/bhfe-web/internal/webassets"
	"github.com/beaconhillfe/bhfe-web/internal/wp"
)

// listing pages rendered on top of the static uris
var listingURIs = []string{"/", "/blog/", "/courses/"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.Export
	cfg.RegisterExport(flag.CommandLine, &conf)
	flag.Parse()

	cfg.FillFromEnv(flag.CommandLine, "BHFE_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.ValidateExport(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, _ := log.ParseLevel(conf.LogLevel)
	lg, err := log.New(log.Options{
		App:         v.AppName,
		Version:     vi.Version,
		Commit:      vi.Commit,
		Environment: conf.Environment,
		Level:       lvl,
		JSON:        conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "export")
	ctx = log.WithContext(ctx, L)

	if err := run(ctx, L, conf); err != nil {
		L.Error(ctx, err, "export failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, L log.Logger, conf cfg.Export) error {
	client, err := wp.New(wp.Options{
		BaseURL: conf.WordPressURL,
		Timeout: conf.GraphQLTimeout,
		Logger:  L,
	})
	if err != nil {
		return err
	}

	br := blocks.NewRenderer(blocks.NewCoreRegistry(), blocks.Options{Logger: L})
	pages, err := templates.NewPages(br, webassets.TemplatesFS())
	if err != nil {
		return err
	}
	s, err := site.New(site.Options{
		Logger:      L,
		Source:      client,
		Templates:   templates.NewResolver(templates.DefaultRegistry(pages), pages.Default(), templates.ResolverOptions{Logger: L}),
		TemplatesFS: webassets.TemplatesFS(),
		StaticFS:    webassets.StaticFS(),
		FallbackFS:  webassets.FallbackFS(),
		Production:  conf.Environment == cfg.EnvProduction,
	})
	if err != nil {
		return err
	}
	r := chi.NewRouter()
	s.Routes(r)

	uris, err := client.StaticURIs(ctx)
	if err != nil {
		return err
	}
	uris = append(listingURIs, uris...)
	L.Info(ctx, "rendering site", "uris", len(uris), "concurrency", conf.Concurrency)

	bundle, err := export.Render(ctx, export.Options{
		Logger:      L,
		Handler:     r,
		Concurrency: conf.Concurrency,
		Discover:    conf.DiscoverLinks,
	}, uris)
	if err != nil {
		return err
	}

	if conf.DryRunPath != "" {
		if err := export.WriteFile(conf.DryRunPath, bundle); err != nil {
			return err
		}
		L.Info(ctx, "dry run bundle written",
			"path", conf.DryRunPath,
			"sha256", bundle.SHA256,
			"pages", len(bundle.Manifest.URIs),
		)
		return nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	pub, err := export.NewPublisher(awsCfg, export.PublisherOptions{
		Logger:   L,
		Bucket:   conf.Bucket,
		Prefix:   conf.Prefix,
		SSMParam: conf.SSMParam,
	})
	if err != nil {
		return err
	}
	return pub.Publish(ctx, bundle)
}
