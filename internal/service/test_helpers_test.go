package service_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/saadjs/kcal-snap/internal/db"
	"github.com/saadjs/kcal-snap/internal/model"
	"github.com/saadjs/kcal-snap/internal/service"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqldb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	return sqldb
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pngHeader is a 1x1 PNG.
var pngHeader = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// stubAnalyzer returns a fixed result. When release is set, Analyze blocks
// until it is closed or ctx is done.
type stubAnalyzer struct {
	mu      sync.Mutex
	calls   int
	food    model.AnalyzedFood
	err     error
	release chan struct{}
	started chan struct{}
}

func (s *stubAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (model.AnalyzedFood, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return model.AnalyzedFood{}, ctx.Err()
		}
	}
	return s.food, s.err
}

func (s *stubAnalyzer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func ptr[T any](v T) *T { return &v }

func asValidation(err error, target **service.ValidationError) bool {
	return errors.As(err, target)
}

func asAnalysis(err error, target **service.AnalysisError) bool {
	return errors.As(err, target)
}
