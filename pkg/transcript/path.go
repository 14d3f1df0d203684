package transcript

import "strings"

// OutputPath derives the transcript path for an input path by replacing
// everything after the final "." with "txt". A path without any "." gets
// ".txt" appended. The derivation is textual and never touches the filesystem,
// so a dot in a directory name counts too ("dir.d/log" becomes "dir.txt").
func OutputPath(input string) string {
	base := input
	if i := strings.LastIndex(input, "."); i >= 0 {
		base = input[:i]
	}
	return base + ".txt"
}
