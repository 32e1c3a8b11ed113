package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel...", Truncate("hello", 3))
	assert.Equal(t, "", Truncate("hello", 0))

	// rune-safe on multibyte text
	got := Truncate("कर्मण्येवाधिकारस्ते", 5)
	assert.Equal(t, 8, len([]rune(got))) // 5 runes plus the ellipsis
	assert.Equal(t, string([]rune("कर्मण्येवाधिकारस्ते")[:5])+"...", got)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, SplitCSV(" AAPL, MSFT ,TSLA,"))
	assert.Nil(t, SplitCSV(" , ,"))
	assert.Nil(t, SplitCSV(""))
}

func TestStr(t *testing.T) {
	assert.Equal(t, "", Str(nil))
	assert.Equal(t, "42", Str(42))
	assert.Equal(t, "price alert", Str("price alert"))
}

func TestUrlQuery(t *testing.T) {
	assert.Equal(t, "insurance+fraud+trends", UrlQuery("insurance fraud trends"))
}
