package versions

import "strings"

// Normalize strips whitespace and a leading "v".
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	if len(version) > 0 && (version[0] == 'v' || version[0] == 'V') {
		version = version[1:]
	}
	return version
}

// Compare returns -1, 0, or 1 as a is older than, equal to, or newer than b.
// Components are compared numerically, so 1.2.0 < 1.10.0, with no upper
// bound on their size. Missing trailing components count as zero;
// pre-release and build suffixes are ignored.
func Compare(a, b string) int {
	left := components(a)
	right := components(b)
	n := max(len(left), len(right))
	for i := range n {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		if c := compareDigits(l, r); c != 0 {
			return c
		}
	}
	return 0
}

// components splits version into numeric components, each reduced to its
// leading digits with leading zeros removed. Zero is the empty string.
func components(version string) []string {
	version = Normalize(version)
	if idx := strings.IndexAny(version, "-+"); idx >= 0 {
		version = version[:idx]
	}
	if version == "" {
		return nil
	}
	parts := strings.Split(version, ".")
	for i, part := range parts {
		end := 0
		for end < len(part) && part[end] >= '0' && part[end] <= '9' {
			end++
		}
		parts[i] = strings.TrimLeft(part[:end], "0")
	}
	return parts
}

func compareDigits(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
