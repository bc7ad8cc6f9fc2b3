package depgraph

import "strings"

// scanHeader finds the leading run of // comment lines. commentEnd is the
// offset just past the last comment line (including its line break);
// headerEnd additionally skips one blank line that directly follows them.
// Without comment lines both offsets are zero. Both \n and \r\n are accepted.
func scanHeader(content string) (commentEnd, headerEnd int) {
	pos := 0
	for pos < len(content) {
		line, next := lineAt(content, pos)
		if !strings.HasPrefix(strings.TrimLeft(line, " \t"), "//") {
			break
		}
		pos = next
		commentEnd = pos
	}
	if commentEnd == 0 {
		return 0, 0
	}
	headerEnd = commentEnd
	if commentEnd < len(content) {
		line, next := lineAt(content, commentEnd)
		if strings.TrimSpace(line) == "" && next > commentEnd {
			headerEnd = next
		}
	}
	return commentEnd, headerEnd
}

// lineAt returns the line starting at pos without its terminator, and the
// offset of the following line.
func lineAt(content string, pos int) (string, int) {
	end := strings.IndexByte(content[pos:], '\n')
	if end < 0 {
		return strings.TrimSuffix(content[pos:], "\r"), len(content)
	}
	return strings.TrimSuffix(content[pos:pos+end], "\r"), pos + end + 1
}

// lineBreak picks the terminator to use when writing into content.
func lineBreak(content string) string {
	if strings.Contains(content, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
