// Package chunk splits parsed document pages into sentence-aware,
// token-bounded, overlapping passages, the unit of retrieval.
//
// Text is segmented into sentences first (tolerating "et al." and
// "Fig. 3"-style abbreviations), then accumulated into chunks bounded
// by token count via pkg/tokencount, with a token-bounded overlap
// between adjacent chunks so a fact straddling a cut is still
// retrievable from at least one of them.
package chunk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kadirpekel/docuquery/pkg/model"
	"github.com/kadirpekel/docuquery/pkg/tokencount"
)

// Config configures the chunker.
type Config struct {
	// TargetTokens is the approximate chunk size in tokens.
	TargetTokens int
	// OverlapTokens is the approximate overlap between adjacent chunks.
	OverlapTokens int
}

// DefaultConfig returns the default chunk sizing: ~380 tokens per
// chunk with ~45 tokens of overlap.
func DefaultConfig() Config {
	return Config{TargetTokens: 380, OverlapTokens: 45}
}

func (c *Config) setDefaults() {
	if c.TargetTokens <= 0 {
		c.TargetTokens = 380
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.TargetTokens {
		c.OverlapTokens = 45
	}
}

// Page is one page of parsed document text, as produced by pkg/parse.
type Page struct {
	Text     string
	Page     int
	Filename string
}

// Chunker splits pages into chunks with stable, contiguous indices.
type Chunker struct {
	cfg     Config
	counter *tokencount.Counter
}

// New creates a Chunker. It lazily acquires the process-wide token
// counter singleton.
func New(cfg Config) (*Chunker, error) {
	cfg.setDefaults()
	counter, err := tokencount.Shared()
	if err != nil {
		return nil, fmt.Errorf("chunk: acquire token counter: %w", err)
	}
	return &Chunker{cfg: cfg, counter: counter}, nil
}

// sentenceBoundary matches whitespace following a sentence terminator.
// It matches every such position; splitSentences then skips the ones
// preceded by a word from the abbreviation list or followed by a
// lowercase letter.
var sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)

// abbreviations that must not be treated as sentence-final even though
// they end in a period. Matched case-insensitively against the word
// immediately preceding the terminator.
var abbreviations = map[string]bool{
	"al.": true, "fig.": true, "figs.": true, "eq.": true, "eqs.": true,
	"e.g.": true, "i.e.": true, "cf.": true, "vs.": true, "etc.": true,
	"dr.": true, "mr.": true, "mrs.": true, "ms.": true, "prof.": true,
	"no.": true, "vol.": true, "pp.": true, "p.": true, "approx.": true,
	"ref.": true, "refs.": true,
}

// splitSentences segments text into sentences, tolerating scientific
// abbreviations.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	matches := sentenceBoundary.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		end := m[1] // end of the matched "terminator + whitespace"
		termStart := m[2]
		candidate := text[last:end]

		// Look back from the terminator to the start of the preceding word
		// to check against the abbreviation list.
		wordStart := termStart
		for wordStart > last && !isSpace(text[wordStart-1]) {
			wordStart--
		}
		word := strings.ToLower(strings.TrimSpace(text[wordStart : m[3]]))

		if abbreviations[word] {
			continue // not a sentence boundary; keep accumulating
		}
		// Also tolerate a following lowercase letter as a continuation,
		// e.g. an unlisted abbreviation in "Acme Inc. and its partners".
		if end < len(text) && isLower(text[end]) {
			continue
		}

		sentences = append(sentences, strings.TrimSpace(candidate))
		last = end
	}
	if last < len(text) {
		if tail := strings.TrimSpace(text[last:]); tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
func isLower(b byte) bool { return b >= 'a' && b <= 'z' }

// Chunk splits the given pages into chunks, assigning ChunkIdx
// monotonically starting at 0 across the whole document and stamping
// Filename and Page. DocID is left for the caller (the Ingestor) to
// stamp once the document record exists; Source is set to session here
// and overwritten by the Ingestor with the document's own source.
func (c *Chunker) Chunk(pages []Page) ([]model.Chunk, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	// Build one sentence stream per page so page boundaries never get
	// lost, keeping Page non-decreasing in ChunkIdx order.
	type sentence struct {
		text string
		page int
		file string
	}
	var sentences []sentence
	for _, p := range pages {
		for _, para := range splitParagraphs(p.Text) {
			for _, s := range splitSentences(para) {
				if s == "" {
					continue
				}
				sentences = append(sentences, sentence{text: s, page: p.Page, file: p.Filename})
			}
		}
	}
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []model.Chunk
	idx := 0

	i := 0
	for i < len(sentences) {
		// A single sentence already over the target (garbled OCR text,
		// an unpunctuated run-on the segmenter couldn't cut) is
		// hard-split on word boundaries before accumulation, or it
		// would be emitted as one unbounded chunk.
		if c.counter.Count(sentences[i].text) > c.cfg.TargetTokens {
			s := sentences[i]
			for _, part := range hardSplit(s.text, c.counter, c.cfg.TargetTokens) {
				chunks = append(chunks, model.Chunk{
					Text:     part,
					Filename: s.file,
					Page:     s.page,
					ChunkIdx: idx,
					Source:   model.SourceSession,
				})
				idx++
			}
			i++
			continue
		}

		var b strings.Builder
		startPage := sentences[i].page
		filename := sentences[i].file
		endPage := startPage
		tokens := 0
		j := i
		for j < len(sentences) {
			s := sentences[j]
			// Cut points: blank lines end a sentence (paragraphs are
			// split before segmentation), accumulation cuts only between
			// sentences, and a sentence over the target was hard-split
			// on whitespace above. A single newline or an individual
			// character is never used as a cut point.
			next := c.counter.Count(s.text)
			if tokens > 0 && tokens+next > c.cfg.TargetTokens {
				break
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(s.text)
			tokens += next
			endPage = s.page
			j++
		}

		chunks = append(chunks, model.Chunk{
			Text:     b.String(),
			Filename: filename,
			Page:     endPage,
			ChunkIdx: idx,
			Source:   model.SourceSession,
		})
		idx++

		if j >= len(sentences) {
			break
		}

		// Overlap: step back from j until ~OverlapTokens have been
		// re-included in the next chunk's start.
		overlapTokens := 0
		k := j
		for k > i && overlapTokens < c.cfg.OverlapTokens {
			k--
			overlapTokens += c.counter.Count(sentences[k].text)
		}
		if k <= i {
			k = j
		}
		i = k
	}

	return chunks, nil
}

var blankLine = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(text string) []string {
	parts := blankLine.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// hardSplit breaks a single oversized sentence on word boundaries so no
// chunk ever exceeds the target by more than one word.
func hardSplit(text string, counter *tokencount.Counter, target int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var out []string
	var b strings.Builder
	tokens := 0
	for _, w := range words {
		wt := counter.Count(w)
		if tokens > 0 && tokens+wt > target {
			out = append(out, b.String())
			b.Reset()
			tokens = 0
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(w)
		tokens += wt
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
