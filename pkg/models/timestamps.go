package models

import "time"

// TimestampTolerance absorbs filesystems that store modification times with
// coarse precision (FAT, some network shares)
const TimestampTolerance = time.Second

// SameModTime reports whether a and b are the same modification time
func SameModTime(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < TimestampTolerance
}

// NewerThan reports whether a is strictly newer than b
func NewerThan(a, b time.Time) bool {
	return a.Sub(b) >= TimestampTolerance
}
