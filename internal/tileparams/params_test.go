package tileparams

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStyleDefault(t *testing.T) {
	s, err := ParseStyle("")
	assert.NoError(t, err)
	assert.Equal(t, StylePlot, s)
}

func TestParseStyleInvalid(t *testing.T) {
	_, err := ParseStyle("bogus")
	assert.Error(t, err)
}

func TestParseRequestTypeInvalid(t *testing.T) {
	_, err := ParseRequestType("jpeg")
	assert.Error(t, err)
}

func TestExtractPlotParamsDefaults(t *testing.T) {
	p, err := ExtractPlotParams(url.Values{})
	assert.NoError(t, err)
	assert.Equal(t, 4, p.PointRadius)
	assert.Equal(t, 1, p.BorderWidth)
	assert.Equal(t, 4, p.ResizeFactor)
	assert.Equal(t, Colour{R: 0xee}, p.PointColour)
	assert.Equal(t, Colour{R: 0xff, G: 0xff, B: 0xff}, p.BorderColour)
}

func TestExtractPlotParamsOverride(t *testing.T) {
	v := url.Values{"point_radius": {"10.4"}, "border_width": {"3.2"}}
	p, err := ExtractPlotParams(v)
	assert.NoError(t, err)
	assert.Equal(t, 10, p.PointRadius)
	assert.Equal(t, 3, p.BorderWidth)
}

func TestExtractUTFGridParamsDefaultsPerStyle(t *testing.T) {
	p, err := ExtractUTFGridParams(url.Values{}, StylePlot)
	assert.NoError(t, err)
	assert.Equal(t, 4, p.GridResolution)
	assert.Equal(t, 3, p.PointWidth)

	p, err = ExtractUTFGridParams(url.Values{}, StyleGridded)
	assert.NoError(t, err)
	assert.Equal(t, 8, p.GridResolution)
	assert.Equal(t, 1, p.PointWidth)
}

func TestExtractSearchParamsMissingIndex(t *testing.T) {
	_, err := ExtractSearchParams(url.Values{})
	assert.Error(t, err)
}

func TestExtractSearchParamsDirect(t *testing.T) {
	v := url.Values{
		"indexes": {"index1, index3, index100"},
		"search":  {`{"search": "something"}`},
	}
	p, err := ExtractSearchParams(v)
	assert.NoError(t, err)
	assert.Equal(t, []string{"index1", "index3", "index100"}, p.Indexes)
	assert.Equal(t, map[string]interface{}{"search": "something"}, p.SearchBody)
}
