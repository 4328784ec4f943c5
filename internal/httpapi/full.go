package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/arxos/tile-server/internal/projection"
	"github.com/arxos/tile-server/internal/tileparams"
)

// maxFullZoom bounds the optional whole-layer composite endpoint: above
// this zoom the tile count (4^z) makes a synchronous composite impractical.
const maxFullZoom = 6

// osmTileURLFormat is the OpenStreetMap raster tile template used when
// with_background=true underlays the composite.
const osmTileURLFormat = "https://%s.tile.openstreetmap.org/%d/%d/%d.png"

var osmMirrors = [...]string{"a", "b", "c"}

const fullCompositeConcurrency = 8

func (s *Server) fullHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	z, err := strconv.Atoi(vars["z"])
	if err != nil || z < 0 || z > maxFullZoom {
		http.Error(w, "z must be an integer between 0 and the full-composite zoom limit", http.StatusBadRequest)
		return
	}

	withBackground := r.URL.Query().Get("with_background") == "true"

	style, err := tileparams.ParseStyle(r.URL.Query().Get("style"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.Tiles != nil {
		if cached, ok := s.Tiles.Get(r.Context(), z, string(style), withBackground); ok {
			w.Header().Set("Content-Type", "image/png")
			w.Write(cached)
			return
		}
	}

	search, err := tileparams.ExtractSearchParams(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}

	side := 1 << uint(z)
	const tileSize = 256
	composite := image.NewRGBA(image.Rect(0, 0, side*tileSize, side*tileSize))

	if withBackground {
		if err := s.paintBackground(r.Context(), composite, z, side, tileSize); err != nil {
			s.Logger.WithError(err).Warn("failed to fetch OpenStreetMap background, continuing without it")
		}
	}

	values := urlValues(r.URL.Query())

	group, ctx := errgroup.WithContext(r.Context())
	group.SetLimit(fullCompositeConcurrency)

	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			x, y := x, y
			group.Go(func() error {
				tile := projection.New(x, y, z)
				buckets, err := s.fetchBuckets(ctx, tile, search)
				if err != nil {
					return err
				}
				img, err := s.renderImage(tile, style, buckets, values)
				if err != nil {
					return err
				}
				draw.Draw(composite, image.Rect(x*tileSize, y*tileSize, (x+1)*tileSize, (y+1)*tileSize),
					img, image.Point{}, draw.Over)
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, composite); err != nil {
		http.Error(w, "failed to encode composite", http.StatusInternalServerError)
		return
	}

	if s.Tiles != nil {
		if err := s.Tiles.Put(r.Context(), z, string(style), withBackground, buf.Bytes()); err != nil {
			s.Logger.WithError(err).Warn("failed to store full composite in tile store")
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// paintBackground underlays OpenStreetMap raster tiles behind the composite.
// A missing or failing background tile is tolerated; only the data layer is
// load-bearing.
func (s *Server) paintBackground(ctx context.Context, composite *image.RGBA, z, side, tileSize int) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(fullCompositeConcurrency)

	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			x, y := x, y
			group.Go(func() error {
				mirror := osmMirrors[(x+y)%len(osmMirrors)]
				url := fmt.Sprintf(osmTileURLFormat, mirror, z, x, y)

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					return nil
				}
				res, err := s.httpClient().Do(req)
				if err != nil {
					return nil
				}
				defer res.Body.Close()
				if res.StatusCode != http.StatusOK {
					return nil
				}

				img, err := png.Decode(res.Body)
				if err != nil {
					return nil
				}

				draw.Draw(composite, image.Rect(x*tileSize, y*tileSize, (x+1)*tileSize, (y+1)*tileSize),
					img, image.Point{}, draw.Src)
				return nil
			})
		}
	}

	return group.Wait()
}

func (s *Server) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}
