package gamma

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeAnchorFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gamma")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fakeKeyReader struct {
	values map[string]string
}

func (f *fakeKeyReader) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("key does not exist")
	}
	return v, nil
}

func TestLoad_Primary(t *testing.T) {
	path := writeAnchorFile(t, "6 0 1 1 1\n20 0 0.8 0.6 0.4\n")

	table, err := Load(context.Background(), FileSource{Path: path}, BuiltinSource{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestLoad_FallbackWhenPrimaryMissing(t *testing.T) {
	missing := FileSource{Path: filepath.Join(t.TempDir(), "missing")}

	table, err := Load(context.Background(), missing, BuiltinSource{}, testLogger())
	require.NoError(t, err)

	builtin, err := ParseAnchors("builtin", bytes.NewReader(builtinAnchors))
	require.NoError(t, err)
	assert.Equal(t, builtin.Anchors(), table.Anchors())
}

func TestLoad_Unavailable(t *testing.T) {
	dir := t.TempDir()
	primary := FileSource{Path: filepath.Join(dir, "a")}
	fallback := FileSource{Path: filepath.Join(dir, "b")}

	_, err := Load(context.Background(), primary, fallback, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var unavailable *ConfigUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Error(t, unavailable.Primary)
	assert.Error(t, unavailable.Fallback)
}

func TestLoad_FormatErrorNotMasked(t *testing.T) {
	path := writeAnchorFile(t, "6 0 1 1\n")

	_, err := Load(context.Background(), FileSource{Path: path}, BuiltinSource{}, testLogger())

	var formatErr *ConfigFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.NotErrorIs(t, err, ErrConfigUnavailable)
}

func TestLoad_EmptyPrimaryFails(t *testing.T) {
	path := writeAnchorFile(t, "# only comments\n")

	_, err := Load(context.Background(), FileSource{Path: path}, BuiltinSource{}, testLogger())
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestRedisSource(t *testing.T) {
	client := &fakeKeyReader{values: map[string]string{
		"gamma:anchors:default": "7 0 5000\n21 0 3000\n",
	}}

	table, err := Load(context.Background(),
		RedisSource{Client: client, Key: "gamma:anchors:default"},
		BuiltinSource{},
		testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 420, table.Anchors()[0].Minute)
}

func TestRedisSource_MissingKeyFallsBack(t *testing.T) {
	client := &fakeKeyReader{values: map[string]string{}}

	table, err := Load(context.Background(),
		RedisSource{Client: client, Key: "gamma:anchors:default"},
		BuiltinSource{},
		testLogger())
	require.NoError(t, err)
	assert.Greater(t, table.Len(), 0)
}

func TestPostgresSource_NoClient(t *testing.T) {
	_, err := PostgresSource{Profile: "default"}.Open(context.Background())
	assert.Error(t, err)
}

func TestPostgresSource_Integration(t *testing.T) {
	t.Skip("Integration test - requires PostgreSQL with a gamma_anchors table")
}
