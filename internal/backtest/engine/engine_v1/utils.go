package engine

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
)

// ResultFolder builds the run output path as
// <results>/<strategy>/<start>_<end>, using "all" for an unbounded side. Runs
// with the same configuration map to the same folder and overwrite it, which
// keeps repeated runs from accumulating stale artifacts.
func ResultFolder(root string, strategyName string, start optional.Option[time.Time], end optional.Option[time.Time]) string {
	startStr := "all"
	endStr := "all"

	if start.IsSome() {
		startStr = start.Unwrap().Format("20060102")
	}

	if end.IsSome() {
		endStr = end.Unwrap().Format("20060102")
	}

	return filepath.Join(root, strategyName, fmt.Sprintf("%s_%s", startStr, endStr))
}

// isSortedStrictly reports whether the bar times are strictly increasing.
func isSortedStrictly(times []int64) bool {
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return false
		}
	}

	return true
}
