package version

import (
	"fmt"
	"runtime/debug"
)

func Get() string {
	var revision string
	var modified bool

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unavailable"
	}

	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	if revision == "" {
		return "unavailable"
	}

	if modified {
		return fmt.Sprintf("%s-dirty", revision)
	}

	return revision
}
