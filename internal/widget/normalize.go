package widget

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TabReplacement is what every horizontal tab in editor content becomes.
const TabReplacement = "  "

// OutputSelector matches the block elements a surface renders program
// output into.
const OutputSelector = "div"

// NormalizeCode expands tabs so graders always receive tab-free code.
func NormalizeCode(code string) string {
	return strings.ReplaceAll(code, "\t", TabReplacement)
}

// HasContent reports whether normalized code is non-blank
func HasContent(code string) bool {
	return strings.TrimSpace(NormalizeCode(code)) != ""
}

// ExtractOutput returns the text of every output block in markup, in
// document order, each followed by a newline. Unparseable markup yields
// no output.
func ExtractOutput(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var out strings.Builder
	doc.Find(OutputSelector).Each(func(_ int, s *goquery.Selection) {
		out.WriteString(s.Text())
		out.WriteByte('\n')
	})
	return out.String()
}
