package types

import "errors"

// Error taxonomy for the ingestion and query paths. Services wrap these with
// fmt.Errorf("...: %w", err) so callers can branch with errors.Is.
var (
	// ErrValidation marks bad input (oversized file, unsupported type, empty
	// query). Never retried.
	ErrValidation = errors.New("validation error")

	// ErrExtraction marks a text extraction failure. The document is marked
	// failed and is not retried automatically.
	ErrExtraction = errors.New("extraction error")

	// ErrEmptyDocument marks a document whose extracted text is empty. A
	// recoverable ingestion failure, not a crash.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrEmbeddingProvider marks a non-transient embedding provider failure
	// after retries are exhausted or skipped.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGenerationProvider marks a non-transient generation provider failure.
	ErrGenerationProvider = errors.New("generation provider error")

	// ErrContentFiltered is returned when the generation provider refuses the
	// request under its safety policy. Surfaced as a degraded answer.
	ErrContentFiltered = errors.New("response blocked by content safety policy")

	// ErrServiceUnavailable is raised by an open circuit breaker; the
	// dependency was not called.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimitExceeded marks a request rejected because a rate budget is
	// exhausted.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTimeout marks a query that exceeded its end-to-end deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrNoRelevantContext is reported when no stored chunk clears the
	// similarity threshold for a query.
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrDocumentNotFound is returned by stores for unknown document IDs.
	ErrDocumentNotFound = errors.New("document not found")
)
