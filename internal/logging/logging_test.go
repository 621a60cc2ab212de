package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestL_DefaultsToNop(t *testing.T) {
	globalLogger = nil
	assert.NotNil(t, L())
}

func TestInit_WritesToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "fmsx.log")
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: out}))
	t.Cleanup(func() { globalLogger = nil })

	Named("test").Debug("hello", zap.Int("n", 1))
	_ = Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"logger":"test"`)
}

func TestInit_Level(t *testing.T) {
	t.Cleanup(func() { globalLogger = nil })
	require.NoError(t, Init(Config{Level: "warn", Output: filepath.Join(t.TempDir(), "l.log")}))
	assert.Equal(t, "warn", globalLevel.Level().String())
	require.NoError(t, Init(Config{Level: "bogus", Output: filepath.Join(t.TempDir(), "l.log")}))
	assert.Equal(t, "info", globalLevel.Level().String())
}

func TestWithContext(t *testing.T) {
	l := zap.NewNop().Named("ctx")
	ctx := IntoContext(context.Background(), l)
	assert.Same(t, l, WithContext(ctx))
	assert.NotNil(t, WithContext(context.Background()))
}
