package connections

import (
	"context"
	"fmt"
	"strings"

	dbdriver "dbstudio"
)

// Resolver turns a connectionRef from a request into a full config.
type Resolver interface {
	ResolveByRef(ctx context.Context, connectionRef string) (dbdriver.ConnectionConfig, error)
}

// ConfigSource looks up a saved connection's config by id. *SQLStore is one.
type ConfigSource interface {
	GetConnection(ctx context.Context, id string) (dbdriver.ConnectionConfig, error)
}

// ResolverFunc lets a plain function serve as a Resolver.
type ResolverFunc func(ctx context.Context, connectionRef string) (dbdriver.ConnectionConfig, error)

func (f ResolverFunc) ResolveByRef(ctx context.Context, connectionRef string) (dbdriver.ConnectionConfig, error) {
	return f(ctx, connectionRef)
}

// NewResolver resolves refs against src after trimming them. A nil src
// yields ErrNotConfigured for every non-blank ref.
func NewResolver(src ConfigSource) Resolver {
	return ResolverFunc(func(ctx context.Context, connectionRef string) (dbdriver.ConnectionConfig, error) {
		id := strings.TrimSpace(connectionRef)
		switch {
		case id == "":
			return dbdriver.ConnectionConfig{}, fmt.Errorf("connectionRef is required: %w", ErrInvalidInput)
		case src == nil:
			return dbdriver.ConnectionConfig{}, ErrNotConfigured
		}
		cfg, err := src.GetConnection(ctx, id)
		if err != nil {
			return dbdriver.ConnectionConfig{}, fmt.Errorf("resolve %q: %w", id, err)
		}
		return cfg, nil
	})
}
