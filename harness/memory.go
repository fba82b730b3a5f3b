package harness

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// processMemoryMB returns the current resident set size of this process
// in megabytes. It reads VmRSS from /proc/self/status; on platforms
// without procfs it falls back to the memory the Go runtime has obtained
// from the OS, which tracks residency closely enough for delta
// measurements.
func processMemoryMB() float64 {
	if kb, ok := readVmRSSKb(); ok {
		return float64(kb) / 1024
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return float64(m.Sys) / 1024 / 1024
}

func readVmRSSKb() (int64, bool) {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return 0, false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}

		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}

		return kb, true
	}

	return 0, false
}
