// Package buildinfo provides build version and metadata information.
package buildinfo

// Version metadata is injected at build time via ldflags.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Summary returns a human-readable version summary string.
func Summary() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	summary := version
	switch {
	case Commit != "" && Date != "":
		summary += " (" + Commit + " " + Date + ")"
	case Commit != "":
		summary += " (" + Commit + ")"
	case Date != "":
		summary += " (" + Date + ")"
	}
	return summary
}
