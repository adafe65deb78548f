package limits

import "time"

// Per-file parse budgets.
const (
	MaxSourceFileBytes = 5 << 20 // minified bundles beyond this are not worth parsing
	DefaultFileTimeout = 10 * time.Second
)

// Parse cache sizing shared by one-shot runs and the watch daemon.
const (
	DefaultParseCacheEntries = 4096
	LargeTreeFileCount       = 5000
)

// Watch daemon budgets.
const (
	MaxWatchEvents = 50
	WatchDebounce  = 100 * time.Millisecond
	StateStaleAge  = 30 * time.Second
)

// ParseCacheSize returns how many parsed files to keep for a tree of the given size.
// Unknown file count (<=0) falls back to the default.
func ParseCacheSize(fileCount int) int {
	if fileCount <= 0 {
		return DefaultParseCacheEntries
	}
	if fileCount > LargeTreeFileCount {
		return fileCount + fileCount/4
	}
	if fileCount > DefaultParseCacheEntries {
		return fileCount
	}
	return DefaultParseCacheEntries
}

// Workers clamps a requested worker count; zero or negative means one per CPU.
func Workers(requested, cpus int) int {
	if requested > 0 {
		return requested
	}
	if cpus <= 0 {
		return 1
	}
	return cpus
}
