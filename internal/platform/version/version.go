package version

import (
	"os"
	"runtime"
)

// Build information, injected via ldflags at build time
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info describes this binary and the process serving it.
type Info struct {
	Client    string `json:"client"`
	PID       int    `json:"pid"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// ClientName is how viewers and the producer refer to this process.
const ClientName = "webmon"

func Get() Info {
	return Info{
		Client:    ClientName,
		PID:       os.Getpid(),
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
