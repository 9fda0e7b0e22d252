// Package version exposes build information stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/jingkaihe/skillctl/pkg/version.Version=$(cat VERSION.txt)"
package version

import (
	"encoding/json"
	"runtime"
)

var (
	// Version is the released version of skillctl.
	Version = "dev"

	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"

	// BuildTime is when the binary was built.
	BuildTime = "unknown"
)

// Info represents version information
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// Get returns the version information of the running binary.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// JSON returns the indented JSON representation of version info.
func (i Info) JSON() (string, error) {
	bytes, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
