package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFullHandlerRejectsZoomAboveLimit(t *testing.T) {
	s := &Server{Logger: logrus.New()}
	req := httptest.NewRequest(http.MethodGet, "/99/full.png", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFullHandlerWithoutTileStoreRejectsMissingIndex(t *testing.T) {
	s := &Server{Logger: logrus.New()}
	req := httptest.NewRequest(http.MethodGet, "/2/full.png", nil)
	rec := httptest.NewRecorder()

	// Tiles is nil, so the cache lookup is skipped and the handler proceeds
	// to style/search extraction, which fails fast without an index.
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPClientFallsBackToDefault(t *testing.T) {
	s := &Server{}
	assert.Equal(t, http.DefaultClient, s.httpClient())

	custom := &http.Client{}
	s.HTTPClient = custom
	assert.Equal(t, custom, s.httpClient())
}
