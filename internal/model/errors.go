package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound 引用的用户 / 分组 / 帖子不存在
	ErrNotFound = errors.New("not found")
	// ErrForbidden 已登录但不是作者
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated 匿名访问需要登录的操作
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConstraintViolation 违反唯一性或自关注约束
	ErrConstraintViolation = errors.New("constraint violation")
)

// ValidationError 表单字段错误，字段名 -> 提示
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
