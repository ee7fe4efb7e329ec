// Package version exposes the build version of the suitability engine.
package version

// Version is the application version. Overridden at build time via
// -ldflags "-X github.com/clearfolio/suitability/internal/version.Version=..."
var Version = "dev"
