// Package embed provides a deterministic, hash-based text embedder.
// It needs no network access or model download, trading semantic
// quality for reproducibility and speed, which is adequate for the
// exact (non-ANN) dense index this module builds over small,
// per-session document sets.
//
// The vector for a text is built by tokenizing, filtering stop words,
// and hashing tokens and character n-grams into weighted buckets, then
// L2-normalizing. Queries get a distinct mode: query text is prepended
// with a fixed retrieval prompt string before tokenizing, the same way
// an instruction-tuned embedding model is primed, while shared content
// tokens between a query and a passage still hash into the same
// buckets so cosine similarity is meaningful between the two.
package embed

import (
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// Dimensions is the fixed embedding size.
const Dimensions = 512

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// Mode distinguishes how a text is being embedded: a query is hashed
// with a query prefix while a document chunk is hashed as is, so their
// raw token overlap isn't the only signal inner product sees.
type Mode int

const (
	// ModeDocument embeds a chunk of ingested text.
	ModeDocument Mode = iota
	// ModeQuery embeds a user query for similarity search against
	// document-mode vectors.
	ModeQuery
)

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// stopWords are common English function words filtered out before
// hashing so they don't dilute the content-bearing buckets.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"of": true, "to": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "by": true, "from": true, "as": true, "it": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "you": true, "we": true,
	"they": true, "he": true, "she": true, "do": true, "does": true, "did": true,
	"has": true, "have": true, "had": true, "not": true, "no": true, "so": true,
}

// Embedder produces deterministic unit-norm vectors for text.
type Embedder struct {
	mu sync.Mutex
}

// New creates an Embedder. It holds no state beyond a mutex retained
// for interface parity with embedders that do (e.g. a future model
// client); hashing itself is stateless and safe for concurrent use.
func New() *Embedder {
	return &Embedder{}
}

var (
	sharedOnce sync.Once
	shared     *Embedder
)

// Shared returns the process-wide embedder singleton.
func Shared() *Embedder {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}

// Embed returns a unit-L2-norm vector of length Dimensions for text,
// under the given mode. The zero vector is returned for empty or
// whitespace-only input.
func (e *Embedder) Embed(text string, mode Mode) []float32 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, Dimensions)
	}
	vector := e.generateVector(trimmed, mode)
	return normalize(vector)
}

// EmbedBatch embeds each text independently, preserving order.
func (e *Embedder) EmbedBatch(texts []string, mode Mode) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.Embed(t, mode)
	}
	return out
}

// queryPrefix is the fixed retrieval prompt string prepended to query
// text before encoding. It is literal input text, not a hash-namespace
// tag: a query and a document chunk that share content tokens must
// still hash those tokens into the same buckets, or inner product
// between the two could never reflect their real similarity. The
// prefix only contributes its own extra tokens.
const queryPrefix = "represent this query for retrieval: "

func (e *Embedder) generateVector(text string, mode Mode) []float32 {
	vector := make([]float32, Dimensions)

	full := text
	if mode == ModeQuery {
		full = queryPrefix + text
	}

	tokens := filterStopWords(tokenize(full))
	for _, tok := range tokens {
		idx := hashToIndex(tok, Dimensions)
		vector[idx] += tokenWeight
	}

	normalized := normalizeForNgrams(full)
	for _, ng := range extractNgrams(normalized, ngramSize) {
		idx := hashToIndex(ng, Dimensions)
		vector[idx] += ngramWeight
	}

	return vector
}

func tokenize(text string) []string {
	words := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, strings.ToLower(w))
	}
	return tokens
}

func filterStopWords(tokens []string) []string {
	filtered := tokens[:0:0]
	for _, t := range tokens {
		if !stopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// normalize scales v to unit L2 norm. The zero vector is returned
// unchanged (there is no direction to normalize to).
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
