// Package timesync converts trace timestamps to wall-clock time.
//
// Chromium trace events carry microsecond timestamps from the monotonic clock
// of the machine that recorded them, which on Linux counts from system boot.
// A Converter either reads the boot time from /proc/stat (for traces recorded
// locally since the last boot) or is anchored explicitly at a known
// (wall time, trace timestamp) pair.
package timesync
