package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFollow(t *testing.T) {
	f, err := NewFollow(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(1), f.FollowerID)
	assert.Equal(t, uint(2), f.AuthorID)

	_, err = NewFollow(3, 3)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	_, err = NewFollow(0, 3)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestPostTitle(t *testing.T) {
	assert.Equal(t, "short", (&Post{Text: "short"}).Title())
	assert.Equal(t, "Тестовый текст ", (&Post{Text: "Тестовый текст для поста"}).Title())
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"text": "required", "group": "unknown group"}}
	assert.Equal(t, "validation failed: group: unknown group; text: required", err.Error())
	assert.Equal(t, "required", NewValidationError("text", "required").Fields["text"])
}
