package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/marquee-ai/marquee/internal/version.Version=1.0.0
//	  -X github.com/marquee-ai/marquee/internal/version.Commit=abc123
//	  -X github.com/marquee-ai/marquee/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("marquee %s (commit: %s, built: %s, %s/%s)",
		Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

// UserAgent is the value outbound HTTP clients send in the User-Agent header.
func UserAgent() string {
	return "marquee/" + Version
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
