// Package provision performs the idempotent setup run on deployment: the
// record schema, the face collection and the hosted frontend assets.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/rs/zerolog"
)

// RequestType is the deployment lifecycle event being handled.
type RequestType string

const (
	RequestCreate RequestType = "create"
	RequestUpdate RequestType = "update"
	RequestDelete RequestType = "delete"
)

// ParseRequestType accepts create, update or delete in any case.
func ParseRequestType(s string) (RequestType, error) {
	switch rt := RequestType(strings.ToLower(strings.TrimSpace(s))); rt {
	case RequestCreate, RequestUpdate, RequestDelete:
		return rt, nil
	}
	return "", fmt.Errorf("invalid request type %q: expected create, update or delete", s)
}

// Backend creates the record schema and the recognition collection.
type Backend struct {
	index      database.IndexMigrator
	recognizer recognition.Recognizer
}

// NewBackend creates a backend provisioner.
func NewBackend(index database.IndexMigrator, recognizer recognition.Recognizer) *Backend {
	return &Backend{index: index, recognizer: recognizer}
}

// Run handles one lifecycle event. Delete leaves everything in place.
func (b *Backend) Run(ctx context.Context, rt RequestType) error {
	logger := zerolog.Ctx(ctx)
	if rt == RequestDelete {
		logger.Info().Msg("backend delete requested, keeping resources")
		return nil
	}

	if err := b.recognizer.CreateCollection(ctx); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	logger.Info().Msg("face collection ready")

	if err := b.index.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}
	logger.Info().Msg("record schema ready")
	return nil
}
