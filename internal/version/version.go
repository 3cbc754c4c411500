// ABOUTME: Version information for streamplay
// ABOUTME: Reported by the CLI and in startup logs
package version

const (
	// Version is the release of this module
	Version = "0.1.0"

	// Product is the name shown by the CLI
	Product = "streamplay"

	// Manufacturer identifies the maintainers
	Manufacturer = "Resonate Protocol"
)
