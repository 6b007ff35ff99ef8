package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(New(http.StatusNotFound, "missing")))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(fmt.Errorf("wrapped: %w", New(http.StatusUnauthorized, "x"))))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(stderrors.New("plain")))
}

func TestIsMatchesStatus(t *testing.T) {
	sentinel := New(http.StatusUnauthorized, "unauthorized")
	err := fmt.Errorf("get theme: %w", New(http.StatusUnauthorized, "token expired"))

	assert.True(t, stderrors.Is(err, sentinel))
	assert.False(t, stderrors.Is(err, New(http.StatusNotFound, "not found")))
}
