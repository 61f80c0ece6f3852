package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean_StripsPageNumbersAndCollapsesBlankLines(t *testing.T) {
	input := "Introduction\n\n\n\nThis is the body text.\n\n12\n\nPage 3 of 10\n"
	got := clean(input, nil)
	assert.NotContains(t, got, "12")
	assert.NotContains(t, got, "Page 3 of 10")
	assert.Contains(t, got, "This is the body text.")
}

func TestClean_StripsBoilerplateLines(t *testing.T) {
	boiler := map[string]struct{}{"Journal of Examples Vol. 7": {}}
	input := "Journal of Examples Vol. 7\nActual content of the page.\n"
	got := clean(input, boiler)
	assert.NotContains(t, got, "Journal of Examples")
	assert.Contains(t, got, "Actual content of the page.")
}

func TestRepeatedLines_FindsRunningHeaders(t *testing.T) {
	rawTexts := map[int]string{
		1: "Journal of Examples Vol. 7\nFirst page body.\n",
		2: "Journal of Examples Vol. 7\nSecond page body.\n",
		3: "Journal of Examples Vol. 7\nThird page body.\n",
		4: "Journal of Examples Vol. 7\nFourth page body.\n",
	}
	boiler := repeatedLines(rawTexts)
	assert.Contains(t, boiler, "Journal of Examples Vol. 7")
	assert.NotContains(t, boiler, "First page body.")
}

func TestRepeatedLines_ShortDocumentsSkipStripping(t *testing.T) {
	rawTexts := map[int]string{
		1: "Shared header\nbody one\n",
		2: "Shared header\nbody two\n",
	}
	assert.Empty(t, repeatedLines(rawTexts))
}

func TestPageNumberLineRegex(t *testing.T) {
	cases := map[string]bool{
		"12":           true,
		"Page 3 of 10": true,
		"page 3":       true,
		"Chapter 3":    false,
		"":             false,
	}
	for input, want := range cases {
		got := pageNumberLine.MatchString(input)
		assert.Equal(t, want, got, "input=%q", input)
	}
}
