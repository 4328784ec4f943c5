package auditlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordOnNilLoggerDoesNotPanic(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Record(context.Background(), Entry{Z: 4, X: 1, Y: 2, Style: "plot"})
	})
}
