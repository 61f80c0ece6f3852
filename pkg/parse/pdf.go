// Package parse extracts clean per-page text from ingested PDFs:
// bare page-number lines and cross-page running headers/footers are
// stripped, blank-line runs collapsed, and empty pages dropped. Each
// page comes back as its own record so downstream chunking can stamp
// real page boundaries.
package parse

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kadirpekel/docuquery/pkg/chunk"
)

// ErrEmptyDocument is returned when a PDF contains no extractable text
// on any page (e.g. a scanned image PDF with no text layer).
var ErrEmptyDocument = fmt.Errorf("parse: document contains no extractable text")

var pageNumberLine = regexp.MustCompile(`(?i)^\s*(?:page\s+)?\d{1,4}\s*(?:of\s*\d{1,4})?\s*$`)

// PDF extracts clean per-page text from the PDF at filePath. Pages
// whose text is empty after stripping are dropped rather than returned
// empty; a document with no non-empty pages returns ErrEmptyDocument.
func PDF(ctx context.Context, filePath, filename string) ([]chunk.Page, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("parse: open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("parse: stat %s: %w", filePath, err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse: open PDF %s: %w", filePath, err)
	}

	total := reader.NumPage()
	rawTexts := make(map[int]string, total)
	for pageNum := 1; pageNum <= total; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		rawTexts[pageNum] = text
	}

	boilerplate := repeatedLines(rawTexts)

	var pages []chunk.Page
	for pageNum := 1; pageNum <= total; pageNum++ {
		text, ok := rawTexts[pageNum]
		if !ok {
			continue
		}
		cleaned := clean(text, boilerplate)
		if cleaned == "" {
			continue
		}
		pages = append(pages, chunk.Page{Text: cleaned, Page: pageNum, Filename: filename})
	}

	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	return pages, nil
}

// boilerplateMinPages is the smallest number of pages a line must
// repeat on before it is treated as a running header or footer.
const boilerplateMinPages = 3

// repeatedLines finds short lines that recur across pages (running
// headers, footers, journal banners) so clean can strip them. A line
// counts once per page; it must appear on at least boilerplateMinPages
// pages and on at least half of all pages with text.
func repeatedLines(rawTexts map[int]string) map[string]struct{} {
	if len(rawTexts) < boilerplateMinPages {
		return nil
	}
	counts := make(map[string]int)
	for _, text := range rawTexts {
		seen := make(map[string]struct{})
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || len(trimmed) > 120 {
				continue
			}
			if _, dup := seen[trimmed]; dup {
				continue
			}
			seen[trimmed] = struct{}{}
			counts[trimmed]++
		}
	}

	threshold := len(rawTexts) / 2
	if threshold < boilerplateMinPages {
		threshold = boilerplateMinPages
	}
	out := make(map[string]struct{})
	for line, n := range counts {
		if n >= threshold {
			out[line] = struct{}{}
		}
	}
	return out
}

// clean strips standalone page-number lines and cross-page boilerplate,
// and collapses excess blank lines left behind by PDF text extraction.
func clean(text string, boilerplate map[string]struct{}) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if pageNumberLine.MatchString(trimmed) {
			continue
		}
		if _, boiler := boilerplate[trimmed]; boiler {
			continue
		}
		if trimmed == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
