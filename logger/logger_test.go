package logger

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := New(env)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestNewWithWriter_TeesJSON(t *testing.T) {
	var sink syncBuffer
	log, err := NewWithWriter("production", &sink)
	require.NoError(t, err)

	log.Info("order confirmed", zap.String("order_id", "cs_test_1"))

	out := sink.String()
	assert.Contains(t, out, `"msg":"order confirmed"`)
	assert.Contains(t, out, `"order_id":"cs_test_1"`)
	assert.Contains(t, out, `"timestamp"`)
}

func TestPresence(t *testing.T) {
	assert.Equal(t, "missing", Presence(""))
	assert.Equal(t, "set", Presence("sk_live_abc"))
}
