package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func resetForTest() {
	instance = nil
	initErr = nil
	once = sync.Once{}
}

func TestNewMemoizesInstanceAndError(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	first, err := New(Config{Development: true})
	require.NoError(t, err)
	require.NotNil(t, first)

	// later calls return the first result, config ignored
	second, err := New(Config{Development: false})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestNewKeepsReportingInitFailure(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	// force the first init to fail before New ever builds a logger
	once.Do(func() {
		initErr = assert.AnError
	})

	l, err := New(Config{})
	assert.Nil(t, l)
	assert.ErrorIs(t, err, assert.AnError)

	l, err = New(Config{Development: true})
	assert.Nil(t, l)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewProducesUsableLogger(t *testing.T) {
	resetForTest()
	t.Cleanup(resetForTest)

	l, err := New(Config{Development: true})
	require.NoError(t, err)
	assert.IsType(t, &zap.SugaredLogger{}, l)
	l.Debugw("init", "ok", true)
}
