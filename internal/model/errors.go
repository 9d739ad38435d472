package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotSinglePackage = errors.New("org should only have one package")
	ErrStatusMissing    = errors.New("status not found")
	ErrPollLimit        = errors.New("poll limit exceeded")
	ErrVersionNotFound  = errors.New("package version not found")
)

// UploadError возвращается, когда запрос завершился не со статусом SUCCESS.
// Errors содержит ответ сервера без изменений.
type UploadError struct {
	Request UploadRequest
}

func (e *UploadError) Error() string {
	errs := string(e.Request.Errors)
	if errs == "" {
		errs = "null"
	}
	return fmt.Sprintf("PACKAGE UPLOAD ERROR: status %s: %s", e.Request.Status, errs)
}
