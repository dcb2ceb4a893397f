package template

import (
	"bytes"
	"strings"
)

// Conflict marker labels. The format follows the familiar git style so
// editors highlight the regions.
const (
	markerOurs   = "<<<<<<< project"
	markerSep    = "======="
	markerTheirs = ">>>>>>> template"
)

// merge3 performs a per-file three-way merge of template updates.
//
//   - base: the file as originally rendered from the recorded template version
//   - incoming: the file as rendered from the new template version
//   - current: the file as it exists in the project tree
//
// When both the user and the template changed the file, the differing middle
// region (after trimming the common prefix and suffix lines) is wrapped in
// conflict markers. The returned line is the 1-based position of the first
// marker, 0 when there is no conflict.
func merge3(base, incoming, current []byte) (merged []byte, conflictLine int) {
	switch {
	case bytes.Equal(incoming, base):
		// Template unchanged: whatever the user has stands.
		return current, 0
	case bytes.Equal(current, base), bytes.Equal(current, incoming):
		// User unchanged (or already matching): take the new render.
		return incoming, 0
	}

	baseLines := splitLines(base)
	inLines := splitLines(incoming)
	curLines := splitLines(current)

	prefix := commonPrefix(baseLines, inLines, curLines)
	suffix := commonSuffix(baseLines[prefix:], inLines[prefix:], curLines[prefix:])

	var out []string
	out = append(out, curLines[:prefix]...)
	out = append(out, markerOurs)
	out = append(out, curLines[prefix:len(curLines)-suffix]...)
	out = append(out, markerSep)
	out = append(out, inLines[prefix:len(inLines)-suffix]...)
	out = append(out, markerTheirs)
	out = append(out, curLines[len(curLines)-suffix:]...)

	return []byte(strings.Join(out, "\n") + "\n"), prefix + 1
}

func splitLines(b []byte) []string {
	s := strings.TrimSuffix(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func commonPrefix(a, b, c []string) int {
	n := 0
	for n < len(a) && n < len(b) && n < len(c) && a[n] == b[n] && a[n] == c[n] {
		n++
	}
	return n
}

func commonSuffix(a, b, c []string) int {
	n := 0
	for n < len(a) && n < len(b) && n < len(c) &&
		a[len(a)-1-n] == b[len(b)-1-n] && a[len(a)-1-n] == c[len(c)-1-n] {
		n++
	}
	return n
}
