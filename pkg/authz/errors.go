package authz

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is matched by every denial returned from Gate.
var ErrPermissionDenied = errors.New("permission denied")

// DeniedError carries the evaluated request of a denial.
type DeniedError struct {
	Request Request
	Needed  Role
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("authz: %s needs role %s in %s", e.Request.Subject, e.Needed, e.Request.Domain)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func forbiddenError(req Request, needed Role) error {
	return &DeniedError{Request: req, Needed: needed}
}

// configError standardizes configuration validation errors.
func configError(msg string, args ...any) error {
	return fmt.Errorf("authz: "+msg, args...)
}
