package utils

import "strings"

// FlagsString lists the names of the bits set in flags, joined with "|". Bits missing from mapping
// are skipped.
func FlagsString[T ~int32 | ~uint32](flags T, mapping map[T]string) string {
	var names []string
	for flag := T(1); flag != 0 && flag <= flags; flag <<= 1 {
		if flags&flag == 0 {
			continue
		}
		if name, ok := mapping[flag]; ok {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}
