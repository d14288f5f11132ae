package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckResultsCompatibility checks whether a results file written with
// fileVersion can be read by an engine expecting engineVersion.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - The file's minor version must not be newer than the engine's
//   - Patch versions can differ freely
func CheckResultsCompatibility(engineVersion, fileVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	fileVersion = strings.TrimPrefix(fileVersion, "v")

	// Skip version check for "main" (development builds)
	if engineVersion == "main" || fileVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine results version '%s': %w", engineVersion, err)
	}

	fileSemver, err := semver.NewVersion(fileVersion)
	if err != nil {
		return fmt.Errorf("invalid results file version '%s': %w", fileVersion, err)
	}

	if engineSemver.Major() != fileSemver.Major() {
		return fmt.Errorf("results format major version mismatch: engine reads %d.x.x but file is %d.x.x",
			engineSemver.Major(), fileSemver.Major())
	}

	if fileSemver.Minor() > engineSemver.Minor() {
		return fmt.Errorf("results file format %d.%d.x is newer than engine format %d.%d.x",
			fileSemver.Major(), fileSemver.Minor(),
			engineSemver.Major(), engineSemver.Minor())
	}

	return nil
}
