package ports

import (
	"context"

	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/internal/governance"
)

// PanelRepository defines append-only storage for governed panel output.
// Rows are immutable once written: a new patch inserts new rows, never
// updates old ones.
type PanelRepository interface {
	// SaveRows persists one patch's governed rows
	SaveRows(ctx context.Context, records []panel.GovernanceRecord) error

	// SaveValidationReport persists the governance posture of one batch
	SaveValidationReport(ctx context.Context, p patch.Version, report governance.ValidationReport) error

	// SaveComparison persists one patch-pair summary
	SaveComparison(ctx context.Context, result panel.ComparisonResult) error

	// RowsForPatch loads a patch's governed rows, strongest evidence first
	RowsForPatch(ctx context.Context, p patch.Version) ([]panel.GovernanceRecord, error)

	// Comparison loads the summary for an ordered patch pair
	Comparison(ctx context.Context, from, to patch.Version) (*panel.ComparisonResult, error)
}
