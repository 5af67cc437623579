package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Callers wrap errors with one of
// these so downstream components can decide what state change a failure causes
// without inspecting message text.
var (
	// ErrTransient marks failures that the next scheduled run may not see again:
	// timeouts, connection resets, rate limiting.
	ErrTransient = errors.New("transient failure")
	// ErrMalformedResponse marks generation output that failed shape validation.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrPermanentRecipient marks a recipient the transport reports as gone:
	// blocked, deactivated, or chat deleted.
	ErrPermanentRecipient = errors.New("permanent recipient failure")
	// ErrDuplicateKey marks an ingestion upsert collision. By contract this is
	// a no-op, not a failure.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStoreUnavailable marks database-level failures that abort the whole
	// invocation.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrValidation marks input that can never succeed without operator action.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether err is classified as retry-on-next-run.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanentRecipient reports whether err means the recipient should be blocked.
func IsPermanentRecipient(err error) bool {
	return errors.Is(err, ErrPermanentRecipient)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
