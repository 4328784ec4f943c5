// Package tileparams implements component I: style-specific knob parsing
// and colour literal parsing, plus request type/style validation and the
// compressed query-body decoding used by the HTTP surface.
package tileparams

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arxos/tile-server/internal/tileerr"
)

// Style is one of the three supported rendering styles.
type Style string

const (
	StylePlot    Style = "plot"
	StyleGridded Style = "gridded"
	StyleHeatmap Style = "heatmap"
)

// ParseStyle validates a style query knob, defaulting to plot when empty.
func ParseStyle(raw string) (Style, error) {
	if raw == "" {
		return StylePlot, nil
	}
	switch Style(raw) {
	case StylePlot, StyleGridded, StyleHeatmap:
		return Style(raw), nil
	default:
		return "", tileerr.InvalidStyle(raw)
	}
}

// RequestType is either a PNG tile or a UTFGrid JSON document.
type RequestType string

const (
	RequestTypePNG  RequestType = "png"
	RequestTypeGrid RequestType = "grid.json"
)

// ParseRequestType validates the `.png`/`.grid.json` suffix of a tile URL.
func ParseRequestType(raw string) (RequestType, error) {
	switch RequestType(raw) {
	case RequestTypePNG, RequestTypeGrid:
		return RequestType(raw), nil
	default:
		return "", tileerr.InvalidRequestType(raw)
	}
}

// Values abstracts the query-parameter source so parsing is testable
// without constructing an *http.Request.
type Values interface {
	Get(key string) string
}

func extractInt(v Values, name string, def int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return int(f), nil
}

func extractFloat(v Values, name string, def float64) (float64, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func extractColour(v Values, name string, def Colour) (Colour, error) {
	raw := v.Get(name)
	if raw == "" {
		return def, nil
	}
	return ParseColour(raw)
}

// PlotParams are the Plot renderer's style-specific knobs (spec.md §4.E).
type PlotParams struct {
	PointRadius  int
	BorderWidth  int
	ResizeFactor int
	PointColour  Colour
	BorderColour Colour
}

func ExtractPlotParams(v Values) (PlotParams, error) {
	var p PlotParams
	var err error
	if p.PointRadius, err = extractInt(v, "point_radius", 4); err != nil {
		return p, err
	}
	if p.BorderWidth, err = extractInt(v, "border_width", 1); err != nil {
		return p, err
	}
	if p.ResizeFactor, err = extractInt(v, "resize_factor", 4); err != nil {
		return p, err
	}
	if p.PointColour, err = extractColour(v, "point_colour", Colour{R: 0xee, G: 0x00, B: 0x00}); err != nil {
		return p, err
	}
	if p.BorderColour, err = extractColour(v, "border_colour", Colour{R: 0xff, G: 0xff, B: 0xff}); err != nil {
		return p, err
	}
	return p, nil
}

// GriddedParams are the Gridded renderer's style-specific knobs (§4.F).
type GriddedParams struct {
	GridResolution int
	ColdColour     Colour
	HotColour      Colour
	RangeSize      int
	ResizeFactor   int
}

func ExtractGriddedParams(v Values) (GriddedParams, error) {
	var p GriddedParams
	var err error
	if p.GridResolution, err = extractInt(v, "grid_resolution", 8); err != nil {
		return p, err
	}
	if p.ColdColour, err = extractColour(v, "cold_colour", Colour{R: 0xf4, G: 0xf1, B: 0x1a}); err != nil {
		return p, err
	}
	if p.HotColour, err = extractColour(v, "hot_colour", Colour{R: 0xf0, G: 0x23, B: 0x23}); err != nil {
		return p, err
	}
	if p.RangeSize, err = extractInt(v, "range_size", 12); err != nil {
		return p, err
	}
	if p.ResizeFactor, err = extractInt(v, "resize_factor", 4); err != nil {
		return p, err
	}
	return p, nil
}

// HeatmapParams are the Heatmap renderer's style-specific knobs (§4.G).
type HeatmapParams struct {
	PointRadius int
	ColdColour  Colour
	HotColour   Colour
	Intensity   float64
}

func ExtractHeatmapParams(v Values) (HeatmapParams, error) {
	var p HeatmapParams
	var err error
	if p.PointRadius, err = extractInt(v, "point_radius", 8); err != nil {
		return p, err
	}
	if p.ColdColour, err = extractColour(v, "cold_colour", Colour{R: 0x00, G: 0x00, B: 0xee}); err != nil {
		return p, err
	}
	if p.HotColour, err = extractColour(v, "hot_colour", Colour{R: 0xee, G: 0x00, B: 0x00}); err != nil {
		return p, err
	}
	if p.Intensity, err = extractFloat(v, "intensity", 0.5); err != nil {
		return p, err
	}
	return p, nil
}

// UTFGridParams are the grid_resolution/point_width knobs, which default
// differently per style.
type UTFGridParams struct {
	GridResolution int
	PointWidth     int
}

func ExtractUTFGridParams(v Values, style Style) (UTFGridParams, error) {
	var defaultResolution, defaultPointWidth int
	if style == StyleGridded {
		defaultResolution, defaultPointWidth = 8, 1
	} else {
		defaultResolution, defaultPointWidth = 4, 3
	}
	var p UTFGridParams
	var err error
	if p.GridResolution, err = extractInt(v, "grid_resolution", defaultResolution); err != nil {
		return p, err
	}
	if p.PointWidth, err = extractInt(v, "point_width", defaultPointWidth); err != nil {
		return p, err
	}
	return p, nil
}

// SearchParams is the resolved index list and optional inner search body to
// hand to the query adapter.
type SearchParams struct {
	Indexes    []string
	SearchBody map[string]interface{}
}

// ExtractSearchParams resolves indexes/search either from the direct
// `indexes`/`search` knobs or from the gzipped base64 `query` knob. A
// missing index in both channels is MissingIndex.
func ExtractSearchParams(v Values) (SearchParams, error) {
	var params SearchParams

	if rawIndexes := v.Get("indexes"); rawIndexes != "" {
		for _, idx := range strings.Split(rawIndexes, ",") {
			params.Indexes = append(params.Indexes, strings.TrimSpace(idx))
		}
	}

	if rawSearch := v.Get("search"); rawSearch != "" {
		var body map[string]interface{}
		if err := json.Unmarshal([]byte(rawSearch), &body); err != nil {
			return params, fmt.Errorf("invalid search parameter: %w", err)
		}
		params.SearchBody = body
	}

	if rawQuery := v.Get("query"); rawQuery != "" {
		decoded, err := parseQueryBody(rawQuery)
		if err != nil {
			return params, fmt.Errorf("invalid query parameter: %w", err)
		}
		if rawIndexes, ok := decoded["indexes"].([]interface{}); ok {
			params.Indexes = nil
			for _, idx := range rawIndexes {
				if s, ok := idx.(string); ok {
					params.Indexes = append(params.Indexes, strings.TrimSpace(s))
				}
			}
		}
		if search, ok := decoded["search"].(map[string]interface{}); ok {
			params.SearchBody = search
		}
	}

	if len(params.Indexes) == 0 {
		return params, tileerr.MissingIndex()
	}

	return params, nil
}

// parseQueryBody decodes a base64url-encoded, gzip-compressed JSON object.
func parseQueryBody(raw string) (map[string]interface{}, error) {
	compressed, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		// tolerate unpadded input
		if compressed, err = base64.RawURLEncoding.DecodeString(raw); err != nil {
			return nil, err
		}
	}
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	var body map[string]interface{}
	if err := json.Unmarshal(decompressed, &body); err != nil {
		return nil, err
	}
	return body, nil
}
