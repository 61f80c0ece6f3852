// Package docuquery provides an agentic retrieval-augmented
// question-answering engine over user-uploaded PDF collections.
//
// Given a natural-language query against a set of selected documents,
// docuquery classifies the query, rewrites it into search-friendly
// variants, performs hybrid (dense vector + BM25) retrieval, reranks
// the candidates, invokes a chat model to synthesize a grounded answer
// with citations, evaluates the answer, and retries with reformulated
// queries when the evidence is judged insufficient.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/kadirpekel/docuquery/cmd/ragctl@latest
//
// Ingest a PDF into a session and query it:
//
//	ragctl ingest --session s1 --file paper.pdf
//	ragctl query --session s1 "what is the main contribution?"
//
// # Using as Go Library
//
// Import the packages you need:
//
//	import (
//	    "github.com/kadirpekel/docuquery/pkg/ingest"
//	    "github.com/kadirpekel/docuquery/pkg/pipeline"
//	    "github.com/kadirpekel/docuquery/pkg/sessionstore"
//	)
//
// # Key Packages
//
//   - pkg/pipeline: the query state machine (router, analyzer,
//     rewriter, retrieval, generator, self-evaluation)
//   - pkg/ingest: the write path (parse, chunk, embed, index, rebuild)
//   - pkg/denseindex, pkg/sparseindex: the two retrieval indexes
//   - pkg/sessionstore: session and document metadata
//   - pkg/cache: the per-session query result cache
//
// # Architecture
//
// Query flow:
//
//	Query → Cache probe → Pipeline (retrieve + generate + evaluate) → Response
//
// Ingestion flow:
//
//	PDF → Parse → Chunk → Embed → DenseIndex + SparseIndex → Cache invalidation
package docuquery
