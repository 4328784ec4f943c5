// Package httpapi wires the tile rendering core up to an HTTP surface:
// routing, CORS, query-parameter extraction, the error-to-status mapping,
// and the optional full-z-level composite endpoint.
package httpapi

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/arxos/tile-server/internal/auditlog"
	"github.com/arxos/tile-server/internal/bucket"
	"github.com/arxos/tile-server/internal/geoquery"
	"github.com/arxos/tile-server/internal/pointcache"
	"github.com/arxos/tile-server/internal/projection"
	"github.com/arxos/tile-server/internal/querycache"
	"github.com/arxos/tile-server/internal/render"
	"github.com/arxos/tile-server/internal/tileerr"
	"github.com/arxos/tile-server/internal/tileparams"
	"github.com/arxos/tile-server/internal/tilestore"
	"github.com/arxos/tile-server/internal/utfgrid"
)

// Server holds the dependencies needed to serve tile and status requests.
type Server struct {
	Query          *geoquery.Client
	Points         *pointcache.Cache
	QueryCache     *querycache.Cache
	Tiles          *tilestore.Store
	Audit          *auditlog.Logger
	Logger         *logrus.Logger
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Router builds the mux.Router with CORS applied, ready to pass to
// http.ListenAndServe.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)
	router.HandleFunc(`/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}.{type:png|grid\.json}`, s.tileHandler).Methods(http.MethodGet)
	router.HandleFunc(`/{z:[0-9]+}/full.png`, s.fullHandler).Methods(http.MethodGet)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	return corsMiddleware.Handler(router)
}

// statusHandler reports service health plus the reachability of each
// configured dependency. It always answers 200; a degraded dependency shows
// up in the body, not the status code.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deps := map[string]bool{}
	if s.Query != nil {
		deps["elasticsearch"] = s.Query.Ping(ctx) == nil
	}
	if s.QueryCache != nil {
		deps["redis"] = s.QueryCache.Ping(ctx) == nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       "OK",
		"dependencies": deps,
	})
}

func (s *Server) tileHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)

	z, errZ := strconv.Atoi(vars["z"])
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errZ != nil || errX != nil || errY != nil {
		s.writeError(w, tileerr.InvalidRequestType(vars["type"]))
		return
	}
	if z > 30 || x >= 1<<uint(z) || y >= 1<<uint(z) {
		http.Error(w, fmt.Sprintf("tile coordinate (%d, %d) out of range for zoom %d", x, y, z), http.StatusBadRequest)
		return
	}

	requestType, err := tileparams.ParseRequestType(vars["type"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	query := r.URL.Query()

	style, err := tileparams.ParseStyle(query.Get("style"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	search, err := tileparams.ExtractSearchParams(query)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tile := projection.New(x, y, z)

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	buckets, err := s.fetchBuckets(ctx, tile, search)
	if err != nil {
		s.writeError(w, err)
		s.audit(tile, style, string(requestType), search.Indexes, statusFor(err), kindOf(err), start)
		return
	}

	var status int
	if requestType == tileparams.RequestTypeGrid {
		status, err = s.serveGrid(w, tile, style, buckets, query)
	} else {
		status, err = s.servePNG(w, tile, style, buckets, query)
	}
	if err != nil {
		s.writeError(w, err)
		status = statusFor(err)
	}

	s.audit(tile, style, string(requestType), search.Indexes, status, kindOf(err), start)
}

func (s *Server) fetchBuckets(ctx context.Context, tile projection.Tile, search tileparams.SearchParams) ([]*bucket.Bucket, error) {
	key := querycache.Key(tile.Z, tile.X, tile.Y, search.Indexes, searchDigest(search.SearchBody))
	if s.QueryCache != nil {
		if cached, ok := s.QueryCache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	buckets, err := s.Query.Query(ctx, tile, search.Indexes, search.SearchBody)
	if err != nil {
		return nil, err
	}

	if s.QueryCache != nil {
		if err := s.QueryCache.Set(ctx, key, buckets); err != nil {
			s.Logger.WithError(err).Warn("failed to populate query cache")
		}
	}

	return buckets, nil
}

func searchDigest(search map[string]interface{}) string {
	if len(search) == 0 {
		return "-"
	}
	raw, err := json.Marshal(search)
	if err != nil {
		return "-"
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

func (s *Server) servePNG(w http.ResponseWriter, tile projection.Tile, style tileparams.Style, buckets []*bucket.Bucket, query map[string][]string) (int, error) {
	img, err := s.renderImage(tile, style, buckets, urlValues(query))
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

// renderImage dispatches to the style-specific renderer, extracting that
// style's knobs from values. Shared by the single-tile PNG handler and the
// full-layer composite handler.
func (s *Server) renderImage(tile projection.Tile, style tileparams.Style, buckets []*bucket.Bucket, values urlValues) (image.Image, error) {
	switch style {
	case tileparams.StyleGridded:
		params, err := tileparams.ExtractGriddedParams(values)
		if err != nil {
			return nil, err
		}
		return render.Gridded(tile, buckets, s.Points, params)
	case tileparams.StyleHeatmap:
		params, err := tileparams.ExtractHeatmapParams(values)
		if err != nil {
			return nil, err
		}
		return render.Heatmap(tile, buckets, s.Points, params)
	default:
		params, err := tileparams.ExtractPlotParams(values)
		if err != nil {
			return nil, err
		}
		return render.Plot(tile, buckets, s.Points, params)
	}
}

func (s *Server) serveGrid(w http.ResponseWriter, tile projection.Tile, style tileparams.Style, buckets []*bucket.Bucket, query map[string][]string) (int, error) {
	values := urlValues(query)

	if style == tileparams.StyleHeatmap {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
		return http.StatusOK, nil
	}

	params, err := tileparams.ExtractUTFGridParams(values, style)
	if err != nil {
		return 0, err
	}

	var doc utfgrid.Document
	if style == tileparams.StyleGridded {
		doc, err = utfgrid.BuildGridded(tile, buckets, params.GridResolution, params.PointWidth)
	} else {
		doc, err = utfgrid.BuildPlot(tile, buckets, params.GridResolution, params.PointWidth)
	}
	if err != nil {
		return 0, err
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

type urlValues map[string][]string

func (v urlValues) Get(key string) string {
	vals := v[key]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var te *tileerr.Error
	if errors.As(err, &te) {
		if te.IsValidation() {
			return http.StatusBadRequest
		}
		if te.Kind == tileerr.KindUpstreamTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func kindOf(err error) string {
	var te *tileerr.Error
	if errors.As(err, &te) {
		return string(te.Kind)
	}
	if err != nil {
		return "unknown"
	}
	return ""
}

func (s *Server) audit(tile projection.Tile, style tileparams.Style, requestType string, indexes []string, status int, errKind string, start time.Time) {
	if s.Audit == nil {
		return
	}
	go s.Audit.Record(context.Background(), auditlog.Entry{
		Z: tile.Z, X: tile.X, Y: tile.Y,
		Style:       string(style),
		RequestType: requestType,
		Indexes:     indexes,
		StatusCode:  status,
		ErrorKind:   errKind,
		DurationMS:  time.Since(start).Milliseconds(),
		RequestedAt: start,
	})
}
