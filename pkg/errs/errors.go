// Package errs defines the small family of typed, wrapped errors the
// storage and retrieval layers use to classify failures, so the
// ingestor and pipeline can distinguish "bad input" from "index
// corruption" from "search failed" without string matching. Each type
// carries component, operation, and an Unwrap-able cause.
package errs

import "fmt"

// ValidationError reports rejected input: a non-PDF upload or an
// unknown document ID.
type ValidationError struct {
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Component, e.Operation, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func NewValidationError(component, operation, message string, err error) *ValidationError {
	return &ValidationError{Component: component, Operation: operation, Message: message, Err: err}
}

// RetrievalError reports a failure inside dense/sparse search or
// reranking for a specific query.
type RetrievalError struct {
	Component string
	Operation string
	Query     string
	Err       error
}

func (e *RetrievalError) Error() string {
	query := e.Query
	if len(query) > 50 {
		query = query[:50] + "..."
	}
	return fmt.Sprintf("[%s] %s failed for query %q: %v", e.Component, e.Operation, query, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func NewRetrievalError(component, operation, query string, err error) *RetrievalError {
	return &RetrievalError{Component: component, Operation: operation, Query: query, Err: err}
}

// IndexCorruptionError reports an unreadable dense or sparse index
// file on disk. The index layers log these and continue with an empty
// index rather than failing the request; the next rebuild restores the
// index from the document records.
type IndexCorruptionError struct {
	IndexKind string // "dense" or "sparse"
	Path      string
	Err       error
}

func (e *IndexCorruptionError) Error() string {
	return fmt.Sprintf("%s index at %s is corrupted: %v", e.IndexKind, e.Path, e.Err)
}

func (e *IndexCorruptionError) Unwrap() error { return e.Err }

func NewIndexCorruptionError(indexKind, path string, err error) *IndexCorruptionError {
	return &IndexCorruptionError{IndexKind: indexKind, Path: path, Err: err}
}

// LLMError is deliberately not defined here: pkg/llm.Error already
// fills that role (operation/message/cause, Unwrap-able) for the one
// package that calls the chat-completions endpoint. A second type for
// the same concern would just be unwired duplication.
