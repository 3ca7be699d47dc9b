package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no tabs", "print 1", "print 1"},
		{"leading tab", "\tprint 1", "  print 1"},
		{"two tabs", "\t\tx", "    x"},
		{"inner tab", "a\tb", "a  b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCode(tt.in))
		})
	}
}

func TestHasContent(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"print 1", true},
		{"  x  ", true},
		{"", false},
		{"   ", false},
		{"\t\n\t", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HasContent(tt.in), "HasContent(%q)", tt.in)
	}
}

func TestExtractOutput(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"no blocks", "<pre>print 1</pre>", ""},
		{"single block", "<div>1</div>", "1\n"},
		{"document order", "<div>a</div><pre>code</pre><div>b</div>", "a\nb\n"},
		{"text only", "<div><b>bold</b> &amp; plain</div>", "bold & plain\n"},
		{"empty block", "<div></div>", "\n"},
		{"empty markup", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractOutput(tt.markup))
		})
	}
}
