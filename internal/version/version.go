package version

// Version is the current version of the tradepruf engine.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/tradepruf/tradepruf/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// ResultsFormatVersion is the version of the on-disk results format
// (stats YAML plus Parquet exports). Bumped on breaking schema changes.
const ResultsFormatVersion = "1.0.0"

// GetVersion returns the current version of the engine.
func GetVersion() string {
	return Version
}
