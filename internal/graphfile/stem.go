package graphfile

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Stem returns the file name of path without directory, compression suffix
// and extension ("dynamic/person_0_0.csv.gz" -> "person_0_0").
func Stem(path string) string {
	name := filepath.Base(path)
	for _, ext := range compressionExts {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	if ext := filepath.Ext(name); ext != "" && ext != name {
		name = name[:len(name)-len(ext)]
	}
	return name
}

// StripNumericSuffix removes trailing "_"-separated segments made only of
// digits, which exporters use to number batch files:
//
//	person_0_0           -> person
//	person_hasInterest_tag_0_0 -> person_hasInterest_tag
//	forum_2012           -> forum
//
// The first segment is always kept, so a wholly numeric stem is returned
// with only its leading segment ("2012_01" -> "2012").
func StripNumericSuffix(stem string) string {
	parts := strings.Split(stem, "_")
	for len(parts) > 1 && isDigits(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "_")
}

// TableStem is StripNumericSuffix(Stem(path)): the name shared by every batch
// file of one table.
func TableStem(path string) string {
	return StripNumericSuffix(Stem(path))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
