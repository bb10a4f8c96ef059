package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Connect opens the store addressed by url. The scheme picks the backend:
// mongodb:// and mongodb+srv:// use MongoDB, postgres:// and postgresql://
// use a JSONB document table, and memory:// (or an empty url) keeps
// everything in process. name is the MongoDB database name.
//
// Connect returns an error rather than exiting so the caller can decide to
// run degraded.
func Connect(ctx context.Context, url, name string, timeout time.Duration, log *zap.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		store *Store
		err   error
	)
	switch scheme(url) {
	case "", "memory":
		store = NewMemory()
	case "mongodb", "mongodb+srv":
		store, err = connectMongo(ctx, url, name)
	case "postgres", "postgresql":
		store, err = connectPostgres(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database url scheme %q", scheme(url))
	}
	if err != nil {
		return nil, err
	}

	log.Info("connected to document store", zap.String("backend", store.Backend))
	return store, nil
}

func scheme(url string) string {
	s, _, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	return strings.ToLower(s)
}
