package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	err := fmt.Errorf("context: %w", Clone(ErrNotFound, "beneficiary not found"))
	appErr := FromError(err)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "beneficiary not found", appErr.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestStorageHidesCause(t *testing.T) {
	appErr := Storage(sql.ErrTxDone, "failed to register beneficiary")
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, "failed to register beneficiary", appErr.Message)
	assert.ErrorIs(t, appErr, sql.ErrTxDone)
	assert.True(t, Is(appErr, ErrStorage))
	assert.False(t, Is(appErr, ErrConflict))
}

func TestTaxonomyConstructors(t *testing.T) {
	v := Validation(nil, "invalid beneficiary", map[string]string{"head_name": "required"})
	assert.Equal(t, http.StatusBadRequest, v.Status)
	assert.Equal(t, "required", v.Details["head_name"])
	assert.True(t, Is(v, ErrValidation))

	assert.Nil(t, Validation(nil, "", map[string]string{}).Details)
	assert.Equal(t, ErrValidation.Message, Validation(nil, "", nil).Message)

	nf := NotFound("scholar")
	assert.Equal(t, "scholar not found", nf.Message)
	assert.Equal(t, http.StatusNotFound, nf.Status)
	assert.NotSame(t, ErrNotFound, nf)

	c := Conflict(sql.ErrNoRows, "")
	assert.Equal(t, http.StatusConflict, c.Status)
	assert.Equal(t, ErrConflict.Message, c.Message)
	assert.ErrorIs(t, c, sql.ErrNoRows)
}

func TestCloneCopiesDetails(t *testing.T) {
	orig := Validation(nil, "bad", map[string]string{"a": "required"})
	clone := Clone(orig, "")
	clone.Details["a"] = "changed"
	assert.Equal(t, "required", orig.Details["a"])
}
