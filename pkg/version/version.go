// Package version derives the reported build version: an -ldflags
// override first, then VCS metadata, then "dev".
package version

import "runtime/debug"

const appName = "newslens"

// commitOverride is set with -ldflags for builds without a .git dir.
var commitOverride string

// Full returns "newslens/<short-commit>", used in response metadata,
// health output, and logs.
func Full() string {
	return appName + "/" + commit()
}

func commit() string {
	if commitOverride != "" {
		return short(commitOverride)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return short(s.Value)
			}
		}
	}
	return "dev"
}

func short(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
