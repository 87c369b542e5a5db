package prof

import (
	"context"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

type Options struct {
	Enabled              bool
	AppName              string
	ServerAddress        string
	TenantID             string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int
}

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

// Start begins continuous profiling. The returned stop func is always safe
// to call.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	noop := func() {}

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		return noop, nil
	}
	if opts.ServerAddress == "" {
		return noop, xerrors.New("pyroscope enabled without a server address")
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return noop, xerrors.Wrapf(err, "start pyroscope (%s)", opts.ServerAddress)
	}
	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	return func() {
		_ = profiler.Stop()
		L.Info(context.Background(), "pyroscope stopped", "server_address", opts.ServerAddress)
	}, nil
}
