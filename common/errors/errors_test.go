package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := InsufficientFunds("balance %d too low", 5)
	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))
	assert.True(t, Is(err, CodeInsufficientFunds))
	assert.False(t, Is(err, CodeNotFound))

	// Untyped errors collapse to internal.
	assert.Equal(t, CodeInternal, CodeOf(stderrors.New("boom")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestToProblemDetails(t *testing.T) {
	pd := ToProblemDetails(New(CodeDuplicatePolicy, "policy exists"), "/api/v1/policies")
	assert.Equal(t, http.StatusConflict, pd.Status)
	assert.Equal(t, CodeDuplicatePolicy, pd.Code)
	assert.Equal(t, "policy exists", pd.Detail)
	assert.Equal(t, "/api/v1/policies", pd.Instance)

	assert.Equal(t, http.StatusForbidden, ToProblemDetails(Unauthorized("no"), "").Status)
	assert.Equal(t, http.StatusNotFound, ToProblemDetails(NotFound("gone"), "").Status)
	assert.Equal(t, http.StatusUnprocessableEntity, ToProblemDetails(InsufficientPoolFunds("dry"), "").Status)
	assert.Equal(t, http.StatusBadRequest, ToProblemDetails(InvalidAmount("zero"), "").Status)
}
