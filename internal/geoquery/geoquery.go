// Package geoquery implements component D: it builds the geo-bounding-box
// and geohash_grid aggregation search against the backing document store and
// maps the raw response into an ordered list of buckets.
package geoquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/mmcloughlin/geohash"

	"github.com/arxos/tile-server/internal/bucket"
	"github.com/arxos/tile-server/internal/projection"
	"github.com/arxos/tile-server/internal/tileerr"
)

// maxBuckets caps the size of the geohash_grid aggregation.
const maxBuckets = 15000

// Client issues tile-bounded aggregation queries against the backing store.
type Client struct {
	es *elasticsearch.Client
}

// New wraps an already-configured elasticsearch client.
func New(es *elasticsearch.Client) *Client {
	return &Client{es: es}
}

// Ping checks backing-store reachability, for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("backing store ping returned status %s", res.Status())
	}
	return nil
}

// geoField is the document field the geo_bounding_box filter and
// geohash_grid aggregation are built against.
const geoField = "meta.geo"

// Query runs the bounded, aggregated search for a tile across the given
// indexes, optionally AND-composing an inner search document, and returns
// the buckets in ascending-count order: the backing store returns buckets
// in descending-count order, and this order is reversed here so that
// callers which paint buckets sequentially place the highest-count bucket
// last, on top.
func (c *Client) Query(ctx context.Context, tile projection.Tile, indexes []string, innerSearch map[string]interface{}) ([]*bucket.Bucket, error) {
	body, err := buildSearchBody(tile, innerSearch)
	if err != nil {
		return nil, tileerr.UpstreamMalformed(fmt.Errorf("building search body: %w", err))
	}

	var payload bytes.Buffer
	if err := json.NewEncoder(&payload).Encode(body); err != nil {
		return nil, tileerr.UpstreamMalformed(fmt.Errorf("encoding search body: %w", err))
	}

	req := esapi.SearchRequest{
		Index: indexes,
		Body:  &payload,
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		if ctx.Err() != nil {
			return nil, tileerr.UpstreamTimeout(err)
		}
		return nil, tileerr.UpstreamUnavailable(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, tileerr.UpstreamUnavailable(fmt.Errorf("backing store returned status %s", res.Status()))
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, tileerr.UpstreamMalformed(fmt.Errorf("decoding search response: %w", err))
	}

	buckets, err := parseBuckets(decoded, tile.Precision())
	if err != nil {
		return nil, tileerr.UpstreamMalformed(err)
	}

	// the store returns descending-count order; reverse to ascending so
	// that sequential painting puts the largest bucket last (on top).
	for i, j := 0, len(buckets)-1; i < j; i, j = i+1, j-1 {
		buckets[i], buckets[j] = buckets[j], buckets[i]
	}

	return buckets, nil
}

func buildSearchBody(tile projection.Tile, innerSearch map[string]interface{}) (map[string]interface{}, error) {
	topLeftLat, topLeftLon := tile.TopLeft(projection.QueryExtra)
	bottomRightLat, bottomRightLon := tile.BottomRight(projection.QueryExtra)

	topLeftLat = projection.Clamp(topLeftLat, -85.0511, 85.0511)
	bottomRightLat = projection.Clamp(bottomRightLat, -85.0511, 85.0511)

	geoFilter := map[string]interface{}{
		"geo_bounding_box": map[string]interface{}{
			geoField: map[string]interface{}{
				"top_left":     fmt.Sprintf("%v, %v", topLeftLat, topLeftLon),
				"bottom_right": fmt.Sprintf("%v, %v", bottomRightLat, bottomRightLon),
			},
		},
	}

	var query map[string]interface{}
	if len(innerSearch) > 0 {
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{geoFilter, innerSearch},
			},
		}
	} else {
		query = map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{geoFilter},
			},
		}
	}

	return map[string]interface{}{
		"size":  0,
		"query": query,
		"aggs": map[string]interface{}{
			"grid": map[string]interface{}{
				"geohash_grid": map[string]interface{}{
					"field":     geoField,
					"precision": tile.Precision(),
					"size":      maxBuckets,
				},
				"aggs": map[string]interface{}{
					"first": map[string]interface{}{
						"top_hits": map[string]interface{}{
							"size": 1,
						},
					},
				},
			},
		},
	}, nil
}

type searchResponse struct {
	Aggregations struct {
		Grid struct {
			Buckets []rawBucket `json:"buckets"`
		} `json:"grid"`
	} `json:"aggregations"`
}

type rawBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
	First    struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	} `json:"first"`
}

func parseBuckets(resp searchResponse, precision int) ([]*bucket.Bucket, error) {
	raw := resp.Aggregations.Grid.Buckets
	out := make([]*bucket.Bucket, 0, len(raw))

	for _, rb := range raw {
		if rb.DocCount < 1 {
			continue
		}

		lat, lon := geohash.Decode(rb.Key)
		box := geohash.BoundingBox(rb.Key)

		var firstRecord map[string]interface{}
		if len(rb.First.Hits.Hits) > 0 {
			firstRecord = rb.First.Hits.Hits[0].Source
		}

		out = append(out, &bucket.Bucket{
			Key:         rb.Key,
			CentreLat:   lat,
			CentreLon:   lon,
			Total:       rb.DocCount,
			FirstRecord: firstRecord,
			BBox: bucket.BoundingBox{
				West:  box.MinLng,
				East:  box.MaxLng,
				North: box.MaxLat,
				South: box.MinLat,
			},
		})
	}

	return out, nil
}

// RecordGeo parses the "<lat>,<lon>" meta.geo string stored on a record.
func RecordGeo(firstRecord map[string]interface{}) (lat, lon float64, ok bool) {
	meta, ok := firstRecord["meta"].(map[string]interface{})
	if !ok {
		return 0, 0, false
	}
	geo, ok := meta["geo"].(string)
	if !ok {
		return 0, 0, false
	}
	parts := strings.SplitN(geo, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	var parsedLat, parsedLon float64
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "%g", &parsedLat); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%g", &parsedLon); err != nil {
		return 0, 0, false
	}
	return parsedLat, parsedLon, true
}
