package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrClassification  = errors.New("classification failed")
	ErrToolCall        = errors.New("tool call failed")
	ErrStorageFault    = errors.New("storage fault")
)

type ToolErrorCode string

const (
	ToolErrBadArguments       ToolErrorCode = "bad_arguments"
	ToolErrNotFound           ToolErrorCode = "not_found"
	ToolErrConstraintViolated ToolErrorCode = "constraint_violation"
	ToolErrUnknownTool        ToolErrorCode = "unknown_tool"
)

// ToolError is the typed failure a tool reports back to its caller. It never
// represents a storage fault; those travel as Go errors wrapping ErrStorageFault.
type ToolError struct {
	Code    ToolErrorCode `json:"code"`
	Message string        `json:"message"`
}

func NewToolError(code ToolErrorCode, format string, args ...any) *ToolError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &ToolError{Code: code, Message: msg}
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Code) + ": " + e.Message
}

func (e *ToolError) Unwrap() error {
	return ErrToolCall
}

// AsToolError reports whether err carries a *ToolError.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
