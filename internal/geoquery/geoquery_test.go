package geoquery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arxos/tile-server/internal/projection"
)

func TestBuildSearchBodyIncludesGeoFilterAndAggregation(t *testing.T) {
	tile := projection.New(1, 1, 2)
	body, err := buildSearchBody(tile, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, body["size"])

	aggs := body["aggs"].(map[string]interface{})
	grid := aggs["grid"].(map[string]interface{})
	ghGrid := grid["geohash_grid"].(map[string]interface{})
	assert.Equal(t, tile.Precision(), ghGrid["precision"])
	assert.Equal(t, maxBuckets, ghGrid["size"])

	query := body["query"].(map[string]interface{})
	boolQuery := query["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})
	assert.Len(t, filters, 1)
}

func TestBuildSearchBodyComposesInnerSearch(t *testing.T) {
	tile := projection.New(0, 0, 0)
	inner := map[string]interface{}{"term": map[string]interface{}{"field": "value"}}
	body, err := buildSearchBody(tile, inner)
	assert.NoError(t, err)

	query := body["query"].(map[string]interface{})
	boolQuery := query["bool"].(map[string]interface{})
	filters := boolQuery["filter"].([]interface{})
	assert.Len(t, filters, 2)
	assert.Equal(t, inner, filters[1])
}

func TestParseBucketsDropsZeroCounts(t *testing.T) {
	resp := searchResponse{}
	resp.Aggregations.Grid.Buckets = []rawBucket{
		{Key: "gcnc6v", DocCount: 5},
		{Key: "gcnc6w", DocCount: 0},
	}
	buckets, err := parseBuckets(resp, 6)
	assert.NoError(t, err)
	assert.Len(t, buckets, 1)
	assert.Equal(t, "gcnc6v", buckets[0].Key)
}

func TestRecordGeoParsesMetaGeoString(t *testing.T) {
	record := map[string]interface{}{
		"meta": map[string]interface{}{"geo": "12.5, -3.25"},
	}
	lat, lon, ok := RecordGeo(record)
	assert.True(t, ok)
	assert.InDelta(t, 12.5, lat, 1e-9)
	assert.InDelta(t, -3.25, lon, 1e-9)
}

func TestRecordGeoMissing(t *testing.T) {
	_, _, ok := RecordGeo(map[string]interface{}{})
	assert.False(t, ok)
}
