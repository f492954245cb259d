package api

import (
	"context"

	"github.com/mrz1836/taskgraph/internal/domain"
)

// SaveDefinition upserts def by def.Name (§4.C saveDefinition).
func (a *API) SaveDefinition(ctx context.Context, def *domain.Definition) error {
	return a.st.SaveDefinition(ctx, def)
}

// GetDefinition returns the definition named name, or ErrNotFound.
func (a *API) GetDefinition(ctx context.Context, name string) (*domain.Definition, error) {
	return a.st.GetDefinition(ctx, name)
}

// DeleteDefinition removes the definition named name, or ErrNotFound.
func (a *API) DeleteDefinition(ctx context.Context, name string) error {
	return a.st.DeleteDefinition(ctx, name)
}

// LoadDefinition parses a definition from an external JSON or YAML file,
// auto-detecting format by extension (§6).
func (a *API) LoadDefinition(ctx context.Context, pathOrName string) (*domain.Definition, error) {
	return a.st.LoadDefinition(ctx, pathOrName)
}
