package tilestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyNaming(t *testing.T) {
	assert.Equal(t, "full/4-plot.png", objectKey(4, "plot", false))
	assert.Equal(t, "full/4-heatmap-with-background.png", objectKey(4, "heatmap", true))
}
