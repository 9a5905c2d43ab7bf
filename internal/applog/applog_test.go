package applog

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/storefront/internal/config"
)

type sample struct{}

func TestLoggerTagsSource(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := For[*sample](zerolog.New(&buf))

	zl := l.Zerolog()
	zl.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"source":"*github.com/omarluq/storefront/internal/applog.sample"`)
}

func TestLoggerCtxPrefersRequestLogger(t *testing.T) {
	t.Parallel()
	var base, req bytes.Buffer
	l := For[sample](zerolog.New(&base))

	rl := zerolog.New(&req).With().Str("request_id", "r1").Logger()
	ctx := rl.WithContext(context.Background())

	l.Ctx(ctx).Info().Msg("in request")
	assert.Empty(t, base.String())
	assert.Contains(t, req.String(), `"request_id":"r1"`)
	assert.Contains(t, req.String(), "applog.sample")

	l.Ctx(context.Background()).Info().Msg("outside")
	assert.Contains(t, base.String(), "outside")
}

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "app.log")
	log, closer, err := New(&config.LoggingConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	log.Debug().Msg("to file")
	require.NoError(t, closer.Close())
	assert.FileExists(t, path)
}

func TestNewBadPath(t *testing.T) {
	t.Parallel()
	_, _, err := New(&config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
