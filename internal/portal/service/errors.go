package service

import (
	"fmt"
	"strings"
)

// ErrorKind 失败类别
type ErrorKind string

const (
	KindInvalidPayloadShape   ErrorKind = "InvalidPayloadShape"
	KindValidationFailed      ErrorKind = "ValidationFailed"
	KindInvalidFile           ErrorKind = "InvalidFile"
	KindInvalidFileType       ErrorKind = "InvalidFileType"
	KindFileSizeLimitExceeded ErrorKind = "FileSizeLimitExceeded"
	KindPartialUploadFailure  ErrorKind = "PartialUploadFailure"
	KindInsertError           ErrorKind = "InsertError"
	KindRelocationFailure     ErrorKind = "RelocationFailure"
	KindDocumentInsertError   ErrorKind = "DocumentInsertError"
	KindUnexpectedError       ErrorKind = "UnexpectedError"
)

// UploadError 附件批次上传或迁移失败
type UploadError struct {
	Kind ErrorKind
	// Failures 每个文件的失败原因
	Failures []string
	Err      error
}

func (e *UploadError) Error() string {
	msg := string(e.Kind)
	if len(e.Failures) > 0 {
		msg += ": " + strings.Join(e.Failures, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UploadError) Unwrap() error { return e.Err }

const genericSubmitMessage = "Failed to submit the service request. Please try again."

// SubmitError 服务请求提交失败；Message 可直接展示给用户
type SubmitError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmitError) Unwrap() error { return e.Err }

func submitError(kind ErrorKind, err error) *SubmitError {
	msg := genericSubmitMessage
	if kind == KindInvalidPayloadShape {
		msg = "Invalid request"
	}
	return &SubmitError{Kind: kind, Message: msg, Err: err}
}
