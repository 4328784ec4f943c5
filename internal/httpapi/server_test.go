package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/arxos/tile-server/internal/tileerr"
)

func TestStatusHandlerReportsOK(t *testing.T) {
	s := &Server{Logger: logrus.New()}
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	s.statusHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])
}

func TestStatusForMapsValidationKindsTo400(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(tileerr.MissingIndex()))
	assert.Equal(t, http.StatusBadRequest, statusFor(tileerr.InvalidStyle("bogus")))
	assert.Equal(t, http.StatusBadRequest, statusFor(tileerr.GridNotPowerOfTwo(5)))
}

func TestStatusForMapsUpstreamTimeoutTo504(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(tileerr.UpstreamTimeout(nil)))
}

func TestStatusForMapsOtherUpstreamKindsTo502(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, statusFor(tileerr.UpstreamUnavailable(nil)))
	assert.Equal(t, http.StatusBadGateway, statusFor(tileerr.UpstreamMalformed(nil)))
}

func TestStatusForMapsUnknownErrorsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assertError{}))
}

func TestKindOfExtractsTileErrorKind(t *testing.T) {
	assert.Equal(t, string(tileerr.KindMissingIndex), kindOf(tileerr.MissingIndex()))
	assert.Equal(t, "unknown", kindOf(assertError{}))
	assert.Equal(t, "", kindOf(nil))
}

func TestURLValuesGetReturnsFirstValue(t *testing.T) {
	v := urlValues{"style": {"gridded", "plot"}, "empty": {}}
	assert.Equal(t, "gridded", v.Get("style"))
	assert.Equal(t, "", v.Get("empty"))
	assert.Equal(t, "", v.Get("missing"))
}

func TestRouterServesStatus(t *testing.T) {
	s := &Server{Logger: logrus.New()}
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTileHandlerRejectsOutOfRangeCoordinates(t *testing.T) {
	s := &Server{Logger: logrus.New()}
	req := httptest.NewRequest(http.MethodGet, "/2/4/0.png?indexes=records", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterRejectsNonNumericTileCoordinates(t *testing.T) {
	s := &Server{Logger: logrus.New()}
	req := httptest.NewRequest(http.MethodGet, "/abc/1/2.png", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
