package hddtemp

import (
	"regexp"
	"strconv"
	"strings"
)

// hddtemp prints one line per drive: "/dev/sda: WDC WD40EFRX-68N32N0: 38°C".
// Sleeping or unsupported drives print a message instead of a value.
var temperatureLine = regexp.MustCompile(`^.+?:.+?:\s*(\d+)`)

// Parse extracts one temperature per recognised output line.
func Parse(output string) []int {
	var temps []int
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := temperatureLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		temps = append(temps, value)
	}
	return temps
}

// Max returns the largest value, or false for an empty slice.
func Max(values []int) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	hottest := values[0]
	for _, v := range values[1:] {
		if v > hottest {
			hottest = v
		}
	}
	return hottest, true
}
