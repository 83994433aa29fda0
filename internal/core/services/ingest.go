package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
	"github.com/custodia-labs/refindex/internal/core/ports/driving"
	"github.com/custodia-labs/refindex/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService feeds a connector's resources into a workspace.
type IngestService struct {
	connector driven.Connector
	registry  driven.NormaliserRegistry
	workspace *Workspace
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	connector driven.Connector,
	registry driven.NormaliserRegistry,
	workspace *Workspace,
) *IngestService {
	return &IngestService{
		connector: connector,
		registry:  registry,
		workspace: workspace,
	}
}

// Load walks the connector's tree and sets every resource.
// Files that cannot be read or normalised are logged and skipped.
//
//nolint:gocognit // Coordinates two channels until both close.
func (s *IngestService) Load(ctx context.Context) (int, error) {
	if err := s.connector.Validate(ctx); err != nil {
		return 0, fmt.Errorf("validate connector: %w", err)
	}

	logger.Section("Load")
	logger.Info("Loading resources from %s", s.connector.Root().FsPath())

	resources, errs := s.connector.Walk(ctx)
	loaded, failed := 0, 0
	for resources != nil || errs != nil {
		select {
		case <-ctx.Done():
			return loaded, ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			failed++
			logger.Warn("walk: %v", err)

		case raw, ok := <-resources:
			if !ok {
				resources = nil
				continue
			}
			if err := s.set(ctx, &raw); err != nil {
				failed++
				logger.Warn("load %s: %v", raw.URI.Path, err)
				continue
			}
			loaded++
		}
	}
	if err := ctx.Err(); err != nil {
		return loaded, err
	}

	logger.Info("Load complete: %d resources, %d errors", loaded, failed)
	return loaded, nil
}

// Apply maps one change onto the workspace.
func (s *IngestService) Apply(ctx context.Context, change domain.RawResourceChange) error {
	switch change.Type {
	case domain.ChangeCreated, domain.ChangeUpdated:
		return s.set(ctx, &change.Resource)
	case domain.ChangeDeleted:
		// A removed directory arrives as a single delete for its own path.
		if s.workspace.DeleteTree(change.Resource.URI) == 0 {
			logger.Debug("delete %s: not in workspace", change.Resource.URI.Path)
		}
		return nil
	default:
		return fmt.Errorf("%w: change type %d", domain.ErrUnsupportedType, change.Type)
	}
}

// Watch applies connector changes until ctx is cancelled.
// Failed changes are logged and watching continues.
func (s *IngestService) Watch(ctx context.Context) error {
	changes, err := s.connector.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if err := s.Apply(ctx, change); err != nil {
				if errors.Is(err, domain.ErrDisposed) {
					return err
				}
				logger.Warn("apply %s %s: %v", change.Type, change.Resource.URI.Path, err)
			}
		}
	}
}

func (s *IngestService) set(ctx context.Context, raw *domain.RawResource) error {
	r, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return fmt.Errorf("normalise: %w", err)
	}
	return s.workspace.Set(*r)
}
