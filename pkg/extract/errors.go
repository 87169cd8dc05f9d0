package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrParseFailed is matched by every per-file extraction failure
	ErrParseFailed = errors.New("parse failed")

	// ErrSyntax indicates the source contains syntax errors
	ErrSyntax = errors.New("syntax error")

	// ErrInvalidContent indicates the source is not valid UTF-8
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates the source exceeds the configured size limit
	ErrFileTooLarge = errors.New("file too large")
)

// ParseError reports why a single file contributed nothing to the graph
type ParseError struct {
	Path string
	Line int // 1-based, 0 when the failure has no position
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes every ParseError match ErrParseFailed
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailed
}
