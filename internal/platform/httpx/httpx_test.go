package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fieldErr struct{ fields map[string]string }

func (f fieldErr) Error() string                  { return "validation failed" }
func (f fieldErr) Unwrap() error                  { return ErrValidation }
func (f fieldErr) FieldErrors() map[string]string { return f.fields }

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrap: %w", ErrNotFound), http.StatusNotFound},
		{ErrDuplicate, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
		assert.Equal(t, tc.status, StatusFor(tc.err), tc.err.Error())
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	}
	assert.Equal(t, http.StatusOK, StatusFor(nil))
}

func TestRespondErrorIncludesFieldErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fieldErr{fields: map[string]string{"fields.rate": "is required"}})

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "about:blank", problem.Type)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Equal(t, "is required", problem.Errors["fields.rate"])
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("%w: dial tcp 10.0.0.5:5432", ErrUnavailable))
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	decode := func(body string) (payload, error) {
		var p payload
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return p, DecodeJSON(req, &p)
	}

	p, err := decode(`{"name":"irrf"}`)
	require.NoError(t, err)
	assert.Equal(t, "irrf", p.Name)

	_, err = decode(``)
	assert.EqualError(t, err, "request body is empty")

	_, err = decode(`{"name":"irrf","other":1}`)
	assert.ErrorContains(t, err, "malformed JSON")

	_, err = decode(`{"name":"a"}{"name":"b"}`)
	assert.ErrorContains(t, err, "single JSON object")
}
