package services

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodePermissionDenied = "ORGCHART_PERMISSION_DENIED"
	CodeBadBatch         = "ORGCHART_BAD_BATCH"
	CodeTargetNotFound   = "ORGCHART_TARGET_NOT_FOUND"
	CodeSelfParent       = "ORGCHART_SELF_PARENT"
	CodeInternal         = "ORGCHART_INTERNAL"
)

// Per-item failure messages.
const (
	MsgPersonNotFound     = "Person not found in this organization"
	MsgDepartmentNotFound = "Department not found in this organization"
	MsgAlreadyInTarget    = "Already in target department"
	MsgSelfParent         = "Cannot set a department as its own parent"
	MsgDescendantParent   = "Cannot set parent to a descendant department"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func permissionDenied(cause error) error {
	return newServiceError(http.StatusForbidden, CodePermissionDenied, "permission denied", cause)
}

func badBatch(message string) error {
	return newServiceError(http.StatusBadRequest, CodeBadBatch, message, nil)
}

func targetNotFound(message string, cause error) error {
	return newServiceError(http.StatusNotFound, CodeTargetNotFound, message, cause)
}

func internalError(cause error) error {
	return newServiceError(http.StatusInternalServerError, CodeInternal, "internal error", cause)
}

func hasCode(err error, code string) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == code
}

func IsPermissionDenied(err error) bool { return hasCode(err, CodePermissionDenied) }
func IsBadBatch(err error) bool         { return hasCode(err, CodeBadBatch) }
func IsTargetNotFound(err error) bool   { return hasCode(err, CodeTargetNotFound) }
func IsSelfParent(err error) bool       { return hasCode(err, CodeSelfParent) }

// itemConflict is an expected per-item rejection. It is reported in the
// result but never logged above debug.
type itemConflict struct {
	message string
}

func (e *itemConflict) Error() string { return e.message }

func conflict(message string) error {
	return &itemConflict{message: message}
}
