// Package errs defines the error kinds shared by the pipeline stages. Each
// stage wraps its failures in *Error so callers can branch with errors.Is on
// the kind (ErrParse, ErrStorage, ...) while keeping the underlying cause.
package errs
