package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebuildDataUnwrap(t *testing.T) {
	in := map[string]interface{}{"_u": "hello"}
	assert.Equal(t, "hello", RebuildData(in))
}

func TestRebuildDataDropsUnderscoreKeysExceptID(t *testing.T) {
	in := map[string]interface{}{
		"name":     "specimen",
		"_private": "secret",
		"_id":      "abc123",
	}
	got := RebuildData(in).(map[string]interface{})
	assert.Equal(t, "specimen", got["name"])
	assert.Equal(t, "abc123", got["_id"])
	_, hasPrivate := got["_private"]
	assert.False(t, hasPrivate)
}

func TestRebuildDataRecursesLists(t *testing.T) {
	in := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"_u": 1},
			map[string]interface{}{"_u": 2},
		},
	}
	got := RebuildData(in).(map[string]interface{})
	assert.Equal(t, []interface{}{1, 2}, got["items"])
}

func TestRebuildDataIsIdempotent(t *testing.T) {
	in := map[string]interface{}{
		"a": map[string]interface{}{"_u": "x"},
		"b": []interface{}{map[string]interface{}{"_u": 1}},
	}
	once := RebuildData(in)
	twice := RebuildData(once)
	assert.Equal(t, once, twice)
}
