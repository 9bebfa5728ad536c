package port

import (
	"context"

	"github.com/guillermoBallester/pgadvisor/internal/core/domain"
)

// CatalogReader takes a read-only snapshot of index statistics and
// constraints for the given schemas. An empty schema list means all
// non-system schemas. Schemas the caller cannot read are reported in the
// snapshot's Denied list; the read continues for the rest.
type CatalogReader interface {
	Read(ctx context.Context, schemas []string) (*domain.Snapshot, error)
}
