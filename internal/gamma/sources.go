package gamma

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrConfigUnavailable is matched by errors.Is on a ConfigUnavailableError
var ErrConfigUnavailable = errors.New("anchor configuration unavailable")

//go:embed default.gamma
var builtinAnchors []byte

// ConfigUnavailableError is returned when neither the primary nor the
// fallback anchor source could be read
type ConfigUnavailableError struct {
	Primary  error
	Fallback error
}

func (e *ConfigUnavailableError) Error() string {
	return fmt.Sprintf("%s: primary: %v; fallback: %v", ErrConfigUnavailable, e.Primary, e.Fallback)
}

func (e *ConfigUnavailableError) Unwrap() []error {
	return []error{ErrConfigUnavailable, e.Primary, e.Fallback}
}

// Source supplies the raw anchor directives
type Source interface {
	// Name identifies the source in logs and errors
	Name() string

	// Open returns the directive text
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads directives from a file on disk
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open anchor file: %w", err)
	}
	return f, nil
}

// BuiltinSource serves the table compiled into the binary
type BuiltinSource struct{}

func (BuiltinSource) Name() string { return "builtin" }

func (BuiltinSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(builtinAnchors)), nil
}

// KeyReader is the subset of the Redis client used by RedisSource
type KeyReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// RedisSource reads the whole directive text from a single string key
type RedisSource struct {
	Client KeyReader
	Key    string
}

func (s RedisSource) Name() string { return "redis:" + s.Key }

func (s RedisSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("redis source %s has no client", s.Key)
	}
	text, err := s.Client.Get(ctx, s.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to read anchors from redis: %w", err)
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

// RowQuerier is the subset of the Postgres client used by PostgresSource
type RowQuerier interface {
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

const anchorDirectivesQuery = `
	SELECT directive
	FROM gamma_anchors
	WHERE profile = $1
	ORDER BY id`

// PostgresSource reads one directive per row from the gamma_anchors table
type PostgresSource struct {
	Client  RowQuerier
	Profile string
}

func (s PostgresSource) Name() string { return "postgres:" + s.Profile }

func (s PostgresSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("postgres source %s has no client", s.Profile)
	}

	rows, err := s.Client.Query(ctx, anchorDirectivesQuery, s.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to query anchors: %w", err)
	}
	defer rows.Close()

	var buf strings.Builder
	for rows.Next() {
		var directive string
		if err := rows.Scan(&directive); err != nil {
			return nil, fmt.Errorf("failed to scan anchor row: %w", err)
		}
		buf.WriteString(directive)
		buf.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anchor rows: %w", err)
	}

	return io.NopCloser(strings.NewReader(buf.String())), nil
}

// Load builds the anchor table from primary, falling back to fallback when
// primary cannot be read. Malformed directives are never masked by the
// fallback.
func Load(ctx context.Context, primary, fallback Source, logger *slog.Logger) (*Table, error) {
	table, primaryErr := loadFrom(ctx, primary)
	if primaryErr == nil {
		logger.Info("Loaded anchor table", "source", primary.Name(), "anchors", table.Len())
		return table, nil
	}
	if !isUnavailable(primaryErr) {
		return nil, primaryErr
	}

	if fallback == nil {
		return nil, &ConfigUnavailableError{Primary: primaryErr, Fallback: errors.New("no fallback source")}
	}

	logger.Warn("Using fallback anchor source",
		"primary", primary.Name(),
		"fallback", fallback.Name(),
		"error", primaryErr)

	table, fallbackErr := loadFrom(ctx, fallback)
	if fallbackErr == nil {
		logger.Info("Loaded anchor table", "source", fallback.Name(), "anchors", table.Len())
		return table, nil
	}
	if !isUnavailable(fallbackErr) {
		return nil, fallbackErr
	}

	return nil, &ConfigUnavailableError{Primary: primaryErr, Fallback: fallbackErr}
}

// unavailableError marks failures to obtain the directive text, as opposed
// to failures to parse it
type unavailableError struct {
	err error
}

func (e *unavailableError) Error() string { return e.err.Error() }
func (e *unavailableError) Unwrap() error { return e.err }

func isUnavailable(err error) bool {
	var u *unavailableError
	return errors.As(err, &u)
}

func loadFrom(ctx context.Context, src Source) (*Table, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &unavailableError{err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &unavailableError{err: fmt.Errorf("failed to read %s: %w", src.Name(), err)}
	}

	return ParseAnchors(src.Name(), bytes.NewReader(data))
}
