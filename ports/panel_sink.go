package ports

import (
	"context"

	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/internal/export"
)

// PanelSink defines the export boundary: where the partitioned panels for
// one patch end up (files, object storage, a downstream feed)
type PanelSink interface {
	// WritePanels emits the entity and context panels for one patch
	WritePanels(ctx context.Context, p patch.Version, parts export.Partitions) error

	// WriteSummaries emits the patch-pair summaries for a whole run
	WriteSummaries(ctx context.Context, comparisons []panel.ComparisonResult) error
}
