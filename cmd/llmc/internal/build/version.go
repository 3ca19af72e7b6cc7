// Package build holds build-time version information injected via ldflags.
//
//	go build -ldflags "-X github.com/MiniPandi/LLMC/cmd/llmc/internal/build.Version=v0.1.0 \
//	  -X github.com/MiniPandi/LLMC/cmd/llmc/internal/build.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/MiniPandi/LLMC/cmd/llmc/internal/build.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package build

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the version information in structured form.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// String returns a one-line version banner.
func String() string {
	return fmt.Sprintf("llmc %s (%s) built %s %s/%s",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
