// Package version exposes build metadata stamped with -ldflags, filled in
// from the module build info when the linker left them unset.
package version

import (
	"fmt"
	"runtime/debug"
)

const AppName = "bhfe-web"

var (
	Version    = "dev"
	Commit     = "none"
	CommitDate string
	BuildDate  string
	BuildID    string
	GoVersion  string
	VCSDirty   *bool
)

type Info struct {
	AppName    string `json:"app"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
	BuildID    string `json:"build_id,omitempty"`
	GoVersion  string `json:"go_version"`
	VCSDirty   *bool  `json:"vcs_dirty,omitempty"`
}

func Get() Info {
	out := Info{
		AppName:    AppName,
		Version:    Version,
		Commit:     Commit,
		CommitDate: CommitDate,
		BuildDate:  BuildDate,
		BuildID:    BuildID,
		GoVersion:  GoVersion,
		VCSDirty:   VCSDirty,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	out.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "none" && s.Value != "" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.CommitDate == "" {
				out.CommitDate = s.Value
			}
			if out.BuildDate == "" {
				out.BuildDate = s.Value
			}
		case "vcs.modified":
			if out.VCSDirty != nil {
				continue
			}
			switch s.Value {
			case "true", "false":
				dirty := s.Value == "true"
				out.VCSDirty = &dirty
			}
		}
	}
	return out
}

// ShortCommit returns the first 12 characters of the commit hash.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 12 {
		return i.Commit[:12]
	}
	return i.Commit
}

// UserAgent identifies outbound requests to WordPress.
func (i Info) UserAgent() string {
	return fmt.Sprintf("%s/%s (+%s)", i.AppName, i.Version, i.ShortCommit())
}
