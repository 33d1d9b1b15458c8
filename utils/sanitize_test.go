package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	out := Sanitize(`  <p>hello <b>world</b></p><script>alert(1)</script> `)
	assert.Equal(t, "<p>hello <b>world</b></p>", out)

	out = Sanitize(`<a href="javascript:alert(1)">x</a>`)
	assert.NotContains(t, out, "javascript")
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "How do I sort a map?", SanitizeText(" <em>How</em> do I sort a map? "))
	assert.NotContains(t, SanitizeText("&lt;script&gt;alert(1)&lt;/script&gt;"), "<script>")
}

func TestSanitizeAll(t *testing.T) {
	assert.Equal(t, []string{"go", "sql"}, SanitizeAll([]string{"<i>go</i>", " sql "}))
	assert.Empty(t, SanitizeAll(nil))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, Unique([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, Unique([]string{}))
}
