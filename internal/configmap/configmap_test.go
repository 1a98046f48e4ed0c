package configmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessors(t *testing.T) {
	cfg := map[string]any{
		"s":      "v",
		"empty":  "",
		"i":      3,
		"i64":    int64(4),
		"f":      5.0,
		"b":      true,
		"d":      "250ms",
		"ds":     2,
		"df":     0.5,
		"bad":    "soon",
		"list":   []any{"a", 1, "b"},
		"strs":   []string{"x"},
		"wrong":  map[string]any{},
		"falsey": false,
	}

	assert.Equal(t, "v", String(cfg, "s"))
	assert.Equal(t, "", String(cfg, "missing"))
	assert.Equal(t, "def", StringDefault(cfg, "empty", "def"))

	assert.Equal(t, 3, Int(cfg, "i", 0))
	assert.Equal(t, 4, Int(cfg, "i64", 0))
	assert.Equal(t, 5, Int(cfg, "f", 0))
	assert.Equal(t, 9, Int(cfg, "wrong", 9))
	assert.Equal(t, int64(3), Int64(cfg, "i", 0))
	assert.Equal(t, int64(7), Int64(cfg, "missing", 7))

	assert.True(t, Bool(cfg, "b", false))
	assert.False(t, Bool(cfg, "falsey", true))
	assert.True(t, Bool(cfg, "missing", true))

	d, err := Duration(cfg, "d", 0)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
	d, err = Duration(cfg, "ds", 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
	d, err = Duration(cfg, "df", 0)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
	d, err = Duration(cfg, "missing", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
	_, err = Duration(cfg, "bad", 0)
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, Strings(cfg, "list"))
	assert.Equal(t, []string{"x"}, Strings(cfg, "strs"))
	assert.Nil(t, Strings(cfg, "missing"))
}
