package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeExtraction             = "EXTRACTION_ERROR"
	ErrCodeTokenizerUnavailable   = "TOKENIZER_UNAVAILABLE"
	ErrCodeClassificationMismatch = "CLASSIFICATION_MISMATCH"
	ErrCodeEmbedding              = "EMBEDDING_ERROR"
	ErrCodeRateLimited            = "RATE_LIMITED"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// Pipeline errors. TokenizerUnavailable is batch-fatal: without a working
// tokenizer the token ceiling cannot be enforced, so ingestion must halt
// rather than risk oversized embedding inputs.
var (
	ErrTokenizerUnavailable = NewDomainError(ErrCodeTokenizerUnavailable, "tokenizer unavailable, token safety cannot be guaranteed")
	ErrEmptyDocument        = NewDomainError(ErrCodeValidation, "document has no extractable text")
	ErrInvalidSpan          = NewDomainError(ErrCodeValidation, "chunk span does not match document text")
)

// Extraction errors
var (
	ErrExtractionFailed    = NewDomainError(ErrCodeExtraction, "failed to extract document content")
	ErrUnsupportedDocument = NewDomainError(ErrCodeExtraction, "unsupported document format")
)

// Enrichment errors
var (
	ErrClassificationMismatch = NewDomainError(ErrCodeClassificationMismatch, "classifier returned a category outside the configured list")
	ErrKeywordsUnavailable    = NewDomainError(ErrCodeClassificationMismatch, "keyword extraction unavailable")
)

// Embedding and storage errors
var (
	ErrEmbeddingFailed   = NewDomainError(ErrCodeEmbedding, "embedding generation failed")
	ErrChunkOverBudget   = NewDomainError(ErrCodeEmbedding, "chunk exceeds the embedding token ceiling")
	ErrRunNotFound       = NewDomainError(ErrCodeNotFound, "ingestion run not found")
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found in run")
	ErrRateLimited       = NewDomainError(ErrCodeRateLimited, "upstream API rate limit exceeded")
	ErrStorageOperation  = NewDomainError(ErrCodeInternalError, "vector store operation failed")
	ErrMissingConfigItem = NewDomainError(ErrCodeValidation, "missing required configuration value")
)
