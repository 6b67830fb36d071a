package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	bytes.Buffer
	synced int
}

func (b *syncBuffer) Sync() error {
	b.synced++
	return nil
}

func newBufferedLogger(buf *syncBuffer) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), buf, zapcore.InfoLevel)
	return zap.New(core)
}

func TestFinish(t *testing.T) {
	t.Run("error is logged and flushed before a non-zero exit", func(t *testing.T) {
		buf := &syncBuffer{}
		code := finish(newBufferedLogger(buf), errors.New("listen tcp :8080: address already in use"))

		assert.Equal(t, 1, code)
		assert.Equal(t, 1, buf.synced)
		assert.Contains(t, buf.String(), "server stopped")
		assert.Contains(t, buf.String(), "address already in use")
	})

	t.Run("clean shutdown still flushes", func(t *testing.T) {
		buf := &syncBuffer{}
		code := finish(newBufferedLogger(buf), nil)

		assert.Equal(t, 0, code)
		assert.Equal(t, 1, buf.synced)
		assert.Empty(t, buf.String())
	})
}
