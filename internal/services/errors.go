package services

import (
	"context"
	"errors"
	"fmt"

	"alumnilink/internal/storage"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	// ErrSubjectNotFound 和 ErrInvalidPhoto 总是与 ErrValidation 一起包装。
	ErrSubjectNotFound = errors.New("subject not found")
	ErrInvalidPhoto    = errors.New("invalid author photo")
	// ErrConflict 只在投票重试次数用尽后才会返回。
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)

func validationErr(op, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %s", op, ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr 把存储层错误翻译成服务层哨兵；未知错误一律视为存储不可用，保留原始错误链。
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
