package receipt

import "fmt"

// DecodeErrCode classifies attachment decode failures
type DecodeErrCode string

const (
	ErrCodeEmptyAttachment   DecodeErrCode = "EMPTY_ATTACHMENT"
	ErrCodeUnknownFormat     DecodeErrCode = "UNKNOWN_FORMAT"
	ErrCodeCorruptImage      DecodeErrCode = "CORRUPT_IMAGE"
	ErrCodeCorruptDocument   DecodeErrCode = "CORRUPT_DOCUMENT"
	ErrCodeEmptyDocument     DecodeErrCode = "EMPTY_DOCUMENT"
	ErrCodePageRenderFailure DecodeErrCode = "PAGE_RENDER_FAILED"
)

// AttachmentDecodeError means the attachment could not be read as an image or
// a paginated document, or one of its pages could not be drawn. It never
// escapes composition: the affected content becomes an error page.
type AttachmentDecodeError struct {
	Code    DecodeErrCode
	Message string
	Cause   error
}

// Error implements the error interface
func (e *AttachmentDecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AttachmentDecodeError) Unwrap() error {
	return e.Cause
}

// NewAttachmentDecodeError creates a new AttachmentDecodeError
func NewAttachmentDecodeError(code DecodeErrCode, message string, cause error) *AttachmentDecodeError {
	return &AttachmentDecodeError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
