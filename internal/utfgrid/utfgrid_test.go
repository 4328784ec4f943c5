package utfgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeIDSkipsQuoteAndBackslash(t *testing.T) {
	assert.Equal(t, '!', encodeID(1))
	assert.Equal(t, '#', encodeID(2))
	assert.Equal(t, ']', encodeID(59))
}

func TestDiamondCellsPlusShapeForWidthThree(t *testing.T) {
	cells := diamondCells(4, 4, 3, 8)
	expect := map[[2]int]bool{
		{4, 4}: true, {3, 4}: true, {5, 4}: true, {4, 3}: true, {4, 5}: true,
	}
	assert.Len(t, cells, 5)
	for _, c := range cells {
		assert.True(t, expect[c])
	}
}

func TestDiamondCellsThirteenForWidthFive(t *testing.T) {
	cells := diamondCells(4, 4, 5, 8)
	assert.Len(t, cells, 13)
}

func TestDiamondCellsSingleForZeroOffset(t *testing.T) {
	cells := diamondCells(2, 2, 1, 8)
	assert.Equal(t, [][2]int{{2, 2}}, cells)
}

func TestDiamondCellsDropsOutOfBounds(t *testing.T) {
	cells := diamondCells(0, 0, 3, 8)
	for _, c := range cells {
		assert.GreaterOrEqual(t, c[0], 0)
		assert.GreaterOrEqual(t, c[1], 0)
	}
	assert.Len(t, cells, 3)
}

func TestAssembleEmptyMarksYieldsEmptyDocument(t *testing.T) {
	doc := assemble(8, 3, nil)
	assert.Equal(t, []string{""}, doc.Keys)
	assert.Empty(t, doc.Data)
	assert.Len(t, doc.Grid, 8)
	for _, row := range doc.Grid {
		assert.Equal(t, "        ", row)
	}
}

func TestAssembleSingleMarkAllocatesKeyAndData(t *testing.T) {
	doc := assemble(8, 3, []mark{{data: map[string]interface{}{"count": 1}, gx: 4, gy: 4}})
	assert.Equal(t, []string{"", "1"}, doc.Keys)
	assert.Contains(t, doc.Data, "1")

	nonSpace := 0
	for _, row := range doc.Grid {
		for _, ch := range row {
			if ch != ' ' {
				nonSpace++
			}
		}
	}
	assert.Equal(t, 5, nonSpace)
}
