// Package sparseindex is a BM25 keyword index over chunk text,
// complementing the exact dense index with lexical recall (exact
// terms, identifiers, numbers) that embedding similarity alone can
// miss.
//
// It is backed by Bleve with a prose analyzer registered as a custom
// tokenizer + stop filter: lowercase, split on whitespace and
// punctuation while preserving internal hyphens and underscores, drop
// English stop words and single-character tokens. A corrupt on-disk
// index (e.g. from a crash mid-write) is detected at Open and cleared
// so the caller gets an empty, working index instead of an error on
// every search.
package sparseindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/kadirpekel/docuquery/pkg/errs"
	"github.com/kadirpekel/docuquery/pkg/model"
)

const (
	proseTokenizerName  = "prose_tokenizer"
	proseStopFilterName = "prose_stop"
	proseAnalyzerName   = "prose_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(proseTokenizerName, proseTokenizerConstructor)
	_ = registry.RegisterTokenFilter(proseStopFilterName, proseStopFilterConstructor)
}

// proseTokenRegex matches runs of letters/digits that may contain
// internal hyphens or underscores, e.g. "state-of-the-art" or "gpt_4"
// stay single tokens rather than being split apart.
var proseTokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+(?:[-_][a-zA-Z0-9]+)*`)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "at": {}, "for": {}, "with": {}, "by": {}, "from": {},
	"as": {}, "it": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"i": {}, "you": {}, "we": {}, "they": {}, "he": {}, "she": {}, "do": {},
	"does": {}, "did": {}, "has": {}, "have": {}, "had": {}, "not": {}, "no": {},
	"so": {},
}

// Tokenize lowercases text, splits on whitespace/punctuation while
// keeping internal hyphens/underscores, and drops stop words and
// tokens of length <= 1.
func Tokenize(text string) []string {
	words := proseTokenRegex.FindAllString(text, -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) <= 1 {
			continue
		}
		if _, stop := stopWords[lower]; stop {
			continue
		}
		out = append(out, lower)
	}
	return out
}

type bleveDoc struct {
	Content  string `json:"content"`
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Page     int    `json:"page"`
	ChunkIdx int    `json:"chunk_idx"`
	Source   string `json:"source"`
}

// Index is a BM25 keyword index over a session's chunks.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// Open opens the index persisted at dir, creating an empty one if it
// doesn't exist yet, and auto-recovering if the on-disk index is
// corrupt (e.g. from a crash mid-write).
func Open(dir string) (*Index, error) {
	indexMapping, err := buildMapping()
	if err != nil {
		return nil, fmt.Errorf("sparseindex: build mapping: %w", err)
	}

	if err := validateIntegrity(dir); err != nil {
		corruption := errs.NewIndexCorruptionError("sparse", dir, err)
		slog.Warn("sparseindex corrupted, rebuilding", "path", dir, "error", corruption)
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, fmt.Errorf("sparseindex: corrupted index %s cannot be cleared: %w (original: %v)", dir, rmErr, corruption)
		}
	}

	idx, err := bleve.Open(dir)
	switch {
	case err == bleve.ErrorIndexPathDoesNotExist:
		idx, err = bleve.New(dir, indexMapping)
	case err != nil && isCorruptionError(err):
		corruption := errs.NewIndexCorruptionError("sparse", dir, err)
		slog.Warn("sparseindex open failed, rebuilding", "path", dir, "error", corruption)
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, fmt.Errorf("sparseindex: cannot clear corrupted index: %w (original: %v)", rmErr, corruption)
		}
		idx, err = bleve.New(dir, indexMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("sparseindex: open/create %s: %w", dir, err)
	}

	return &Index{index: idx, path: dir}, nil
}

func validateIntegrity(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(dir, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json empty")
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "unexpected end of JSON") ||
		strings.Contains(s, "error parsing mapping JSON") ||
		strings.Contains(s, "failed to load segment") ||
		strings.Contains(s, "error opening bolt") ||
		strings.Contains(s, "no such file or directory") ||
		err == bleve.ErrorIndexMetaCorrupt
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(proseAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": proseTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			proseStopFilterName,
		},
	})
	if err != nil {
		return nil, err
	}
	m.DefaultAnalyzer = proseAnalyzerName
	return m, nil
}

// Result is one scored hit from Search.
type Result struct {
	Chunk model.Chunk
	Score float32
}

// Index adds or replaces chunks in the index, keyed by Chunk.Key().
func (idx *Index) Index(_ context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("sparseindex: closed")
	}

	batch := idx.index.NewBatch()
	for _, c := range chunks {
		doc := bleveDoc{
			Content: c.Text, DocID: c.DocID, Filename: c.Filename,
			Page: c.Page, ChunkIdx: c.ChunkIdx, Source: string(c.Source),
		}
		if err := batch.Index(c.Key(), doc); err != nil {
			return fmt.Errorf("sparseindex: index %s: %w", c.Key(), err)
		}
	}
	return idx.index.Batch(batch)
}

// Search returns the topK chunks best matching query by BM25 score. An
// empty query, or a query that tokenizes to nothing (stop words only),
// returns an empty result rather than an error.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, fmt.Errorf("sparseindex: closed")
	}
	if strings.TrimSpace(query) == "" || len(Tokenize(query)) == 0 {
		return nil, nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	req.Size = topK
	req.Fields = []string{"content", "doc_id", "filename", "page", "chunk_idx", "source"}

	result, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sparseindex: search: %w", err)
	}

	out := make([]Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, Result{
			Chunk: model.Chunk{
				Text:     fieldString(hit.Fields, "content"),
				DocID:    fieldString(hit.Fields, "doc_id"),
				Filename: fieldString(hit.Fields, "filename"),
				Page:     fieldInt(hit.Fields, "page"),
				ChunkIdx: fieldInt(hit.Fields, "chunk_idx"),
				Source:   model.Source(fieldString(hit.Fields, "source")),
			},
			Score: float32(hit.Score),
		})
	}
	return out, nil
}

func fieldString(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldInt(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Delete removes the chunks of docID whose indices are in chunkIdxs.
func (idx *Index) Delete(_ context.Context, docID string, chunkIdxs []int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return fmt.Errorf("sparseindex: closed")
	}

	batch := idx.index.NewBatch()
	for _, ci := range chunkIdxs {
		batch.Delete((model.Chunk{DocID: docID, ChunkIdx: ci}).Key())
	}
	return idx.index.Batch(batch)
}

// Count returns the number of indexed chunks.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n, _ := idx.index.DocCount()
	return int(n)
}

// Close releases the underlying index handle. Bleve persists on every
// batch write, so no explicit Save is needed.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.index.Close()
}

func proseTokenizerConstructor(_ map[string]any, _ *registry.Cache) (analysis.Tokenizer, error) {
	return proseTokenizer{}, nil
}

type proseTokenizer struct{}

func (proseTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := proseTokenRegex.FindAllStringIndex(text, -1)
	result := make(analysis.TokenStream, 0, len(tokens))
	for i, loc := range tokens {
		result = append(result, &analysis.Token{
			Term:     []byte(text[loc[0]:loc[1]]),
			Start:    loc[0],
			End:      loc[1],
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return result
}

func proseStopFilterConstructor(_ map[string]any, _ *registry.Cache) (analysis.TokenFilter, error) {
	return proseStopFilter{}, nil
}

type proseStopFilter struct{}

func (proseStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		term := strings.ToLower(string(tok.Term))
		if len(term) <= 1 {
			continue
		}
		if _, stop := stopWords[term]; stop {
			continue
		}
		result = append(result, tok)
	}
	return result
}
