package parametros

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *recordingLog) {
	t.Helper()
	svc, _, changes := newTestService(t)
	h := NewHandler(nil, svc)
	h.today = func() time.Time { return time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/parametros", h.MountRoutes)
	return r, changes
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type problem struct {
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	var p problem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func TestHandlerCrudRoundTrip(t *testing.T) {
	router, changes := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPost, "/parametros/IRRF",
		`{"kind":"IRRF","fields":{"bracket_1_limit":2000,"rate":0.075}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "/parametros/IRRF/"+created.ID, rr.Header().Get("Location"))
	assert.Contains(t, rr.Body.String(), `"fields":{"bracket_1_limit":2000,"rate":0.075}`)

	rr = doRequest(t, router, http.MethodPut, "/parametros/irrf/"+created.ID, `{"fields":{"rate":0.08}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, router, http.MethodGet, "/parametros/IRRF", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, Fields{{Name: "bracket_1_limit", Value: 2000}, {Name: "rate", Value: 0.08}}, listed[0].Fields)
	assert.Equal(t, int64(2), listed[0].Version)

	rr = doRequest(t, router, http.MethodGet, "/parametros/IRRF/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodDelete, "/parametros/IRRF/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"`+created.ID+`","kind":"IRRF","deleted":true}`, rr.Body.String())

	rr = doRequest(t, router, http.MethodGet, "/parametros/IRRF", "")
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = doRequest(t, router, http.MethodDelete, "/parametros/IRRF/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Len(t, changes.actions(), 3)
}

func TestHandlerCreateValidation(t *testing.T) {
	router, changes := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPost, "/parametros/FGTS", `{"fields":{"penalty_rate":0.4}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	p := decodeProblem(t, rr)
	assert.Equal(t, "is required", p.Errors["fields.rate"])

	rr = doRequest(t, router, http.MethodPost, "/parametros/FGTS", `{"fields":{"rate":"high"}}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeProblem(t, rr).Errors, "body")

	rr = doRequest(t, router, http.MethodPost, "/parametros/FGTS", `{"fields":{"rate":0.08},"extra":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/parametros/FGTS", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/parametros/FGTS", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.Empty(t, changes.actions())
}

func TestHandlerUnknownKind(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doRequest(t, router, http.MethodGet, "/parametros/INSS", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, http.StatusNotFound, decodeProblem(t, rr).Status)

	rr = doRequest(t, router, http.MethodPost, "/parametros/INSS", `{"fields":{"rate":0.1}}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerUnknownID(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, id := range []string{testID, "123"} {
		rr := doRequest(t, router, http.MethodPut, "/parametros/FGTS/"+id, `{"fields":{"rate":0.1}}`)
		assert.Equal(t, http.StatusNotFound, rr.Code, id)
		rr = doRequest(t, router, http.MethodGet, "/parametros/FGTS/"+id, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, id)
	}
}

func TestHandlerIfMatch(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doRequest(t, router, http.MethodPost, "/parametros/FGTS", `{"fields":{"rate":0.08}}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	path := "/parametros/FGTS/" + created.ID

	rr = doRequest(t, router, http.MethodPut, path, `{"fields":{"rate":0.09}}`, "If-Match", `"7"`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, router, http.MethodPut, path, `{"fields":{"rate":0.09}}`, "If-Match", "abc")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeProblem(t, rr).Errors, "If-Match")

	rr = doRequest(t, router, http.MethodPut, path, `{"fields":{"rate":0.09}}`, "If-Match", `W/"1"`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(t, router, http.MethodPut, path, `{"fields":{"rate":0.1},"version":1}`, "If-Match", `"2"`)
	assert.Equal(t, http.StatusConflict, rr.Code, "body version wins over If-Match")
}

func TestHandlerEffective(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doRequest(t, router, http.MethodPost, "/parametros/IRRF",
		`{"fields":{"rate":0.275},"effective_period":{"start":"2024-02-01"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"effective_period":{"start":"2024-02-01"}`)

	rr = doRequest(t, router, http.MethodGet, "/parametros/IRRF/vigente?data=2024-01-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = doRequest(t, router, http.MethodGet, "/parametros/IRRF/vigente", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var records []Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	assert.Len(t, records, 1)

	rr = doRequest(t, router, http.MethodGet, "/parametros/vigentes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var set map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &set))
	assert.JSONEq(t, `"2024-06-15"`, string(set["data"]))
	assert.JSONEq(t, `[]`, string(set["FGTS"]))

	rr = doRequest(t, router, http.MethodGet, "/parametros/vigentes?data=15/06/2024", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeProblem(t, rr).Errors, "data")
}

type failingService struct {
	ParameterService
	err error
}

func (f failingService) List(context.Context, Kind) ([]Record, error) {
	return nil, f.err
}

func TestHandlerStorageFailureIs503(t *testing.T) {
	h := NewHandler(nil, failingService{err: storageErr("get_all", context.DeadlineExceeded)})
	r := chi.NewRouter()
	r.Route("/parametros", h.MountRoutes)

	rr := doRequest(t, r, http.MethodGet, "/parametros/FGTS", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "deadline")
}

func TestHandlerAcceptsAnyUUIDSpelling(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doRequest(t, router, http.MethodPost, "/parametros/FGTS", `{"fields":{"rate":0.08}}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	for name, id := range idSpellings(created.ID) {
		rr = doRequest(t, router, http.MethodGet, "/parametros/FGTS/"+id, "")
		require.Equal(t, http.StatusOK, rr.Code, name)
		var got Record
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, created.ID, got.ID, name)
	}

	rr = doRequest(t, router, http.MethodDelete, "/parametros/FGTS/urn:uuid:"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"`+created.ID+`","kind":"FGTS","deleted":true}`, rr.Body.String())

	rr = doRequest(t, router, http.MethodDelete, "/parametros/FGTS/urn:uuid:"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
