package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("load class: %w", Clone(ErrNotFound, "class not found"))

	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "class not found", appErr.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
	assert.Nil(t, FromError(nil))
}

func TestClonesMatchTemplate(t *testing.T) {
	clone := Clone(ErrValidation, "invalid date")
	assert.True(t, errors.Is(clone, ErrValidation))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Internal(errors.New("boom"), "failed to list classes")
	assert.Equal(t, "failed to list classes: boom", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}
