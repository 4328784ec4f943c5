package querycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIsStableForSameInputs(t *testing.T) {
	a := Key(4, 1, 2, []string{"specimens"}, "digest")
	b := Key(4, 1, 2, []string{"specimens"}, "digest")
	assert.Equal(t, a, b)
}

func TestKeyDiffersByTile(t *testing.T) {
	a := Key(4, 1, 2, []string{"specimens"}, "digest")
	b := Key(4, 1, 3, []string{"specimens"}, "digest")
	assert.NotEqual(t, a, b)
}
