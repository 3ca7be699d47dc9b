package rules

import (
	"strings"
)

const indentUnit = "    "

// NormalizeCode canonicalizes learner code so that cosmetic differences
// do not affect code rules. Comments outside string literals are removed,
// whitespace runs outside strings collapse to one space, blank lines are
// dropped and each nesting level is re-indented to four spaces.
func NormalizeCode(code string) string {
	code = strings.ReplaceAll(code, "\t", "  ")

	var out []string
	indents := []int{0}
	for _, line := range strings.Split(code, "\n") {
		body := collapseOutsideStrings(stripComment(line))
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}

		width := len(line) - len(strings.TrimLeft(line, " "))
		for len(indents) > 1 && indents[len(indents)-1] > width {
			indents = indents[:len(indents)-1]
		}
		if width > indents[len(indents)-1] {
			indents = append(indents, width)
		}
		level := len(indents) - 1

		out = append(out, strings.Repeat(indentUnit, level)+body)
	}
	return strings.Join(out, "\n")
}

// stripComment drops a '#' comment unless it is inside a string literal
func stripComment(line string) string {
	var quote rune
	escaped := false
	for i, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != 0:
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#':
			return line[:i]
		}
	}
	return line
}

func collapseOutsideStrings(line string) string {
	var b strings.Builder
	var quote rune
	escaped := false
	space := false
	for _, r := range line {
		if quote == 0 && (r == ' ' || r == '\t') {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != 0:
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		}
	}
	return b.String()
}

// normalizeOutput strips trailing whitespace from every line and drops
// leading and trailing blank lines.
func normalizeOutput(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// roughOutput lowercases s, collapses whitespace and drops blank lines
func roughOutput(s string) string {
	var out []string
	for _, l := range strings.Split(strings.ToLower(s), "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
