package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLToTextStripsScriptsAndStyles(t *testing.T) {
	html := `<html><head><style>body{color:red}</style></head><body>
<script>alert("x")</script>
<h1>Annual Report 2024</h1>
<p>Total revenue was $10M.</p>
<noscript>enable js</noscript>
</body></html>`

	text, err := HTMLToText("https://example.com", html)
	require.NoError(t, err)

	assert.Contains(t, text, "Annual Report 2024")
	assert.Contains(t, text, "Total revenue was $10M.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "enable js")
}

func TestSplitPseudoPages(t *testing.T) {
	word := "revenue"
	count := (pseudoPageSize / (len(word) + 1)) * 3
	text := strings.TrimSpace(strings.Repeat(word+" ", count))

	pages := SplitPseudoPages(text)
	require.GreaterOrEqual(t, len(pages), 3)

	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.LessOrEqual(t, len(p.Text), pseudoPageSize)
		for _, w := range strings.Fields(p.Text) {
			assert.Equal(t, word, w)
		}
	}
}

func TestSplitPseudoPagesEmpty(t *testing.T) {
	assert.Nil(t, SplitPseudoPages("   \n "))
}

func TestSplitPseudoPagesShortText(t *testing.T) {
	pages := SplitPseudoPages("net income rose")
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "net income rose", pages[0].Text)
}
