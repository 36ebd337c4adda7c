// Package ntfstime converts between NTFS file times (100-ns intervals
// since 1601-01-01 UTC) and Unix time, and implements the live tap's
// recency comparison.
package ntfstime

import "time"

// intervalsPerSecond is the number of 100-ns NTFS intervals in one second.
const intervalsPerSecond = 10_000_000

// epochOffset is the number of 100-ns intervals between 1601-01-01 and
// 1970-01-01: ntfs_time = unix_seconds*1e7 + epochOffset.
const epochOffset = 116_444_736_000_000_000

// FromUnix converts a Unix timestamp (seconds since 1970-01-01) to an
// NTFS file time.
func FromUnix(unixSeconds int64) uint64 {
	return uint64(unixSeconds*intervalsPerSecond + epochOffset)
}

// ToTime converts an NTFS file time to a time.Time.
func ToTime(ntfsTime uint64) time.Time {
	intervals := int64(ntfsTime) - epochOffset
	seconds := intervals / intervalsPerSecond
	remainder := intervals % intervalsPerSecond
	return time.Unix(seconds, remainder*100)
}

// IsRecent reports whether modifyTime (an NTFS file time from
// $STANDARD_INFORMATION) falls within maxAge of now. A naive
// `now - modTime >= maxAge` check is the inverted test: it flags
// everything OLDER than maxAge as "recent". The comparison used here is
// `|now - modTime| <= maxAge` (a modify time ahead of now counts by its
// distance from now), so only recent modifications are extracted.
func IsRecent(modifyTime uint64, now time.Time, maxAge time.Duration) bool {
	modified := ToTime(modifyTime)
	age := now.Sub(modified)
	if age < 0 {
		age = -age
	}
	return age <= maxAge
}
