package ports

import (
	"context"

	"metapanel/domain/match"
	"metapanel/domain/patch"
)

// MatchSource defines the ingestion boundary: something that can hand the
// pipeline per-player per-match records, grouped by patch
type MatchSource interface {
	// Patches lists the patch versions the source holds records for
	Patches(ctx context.Context) ([]patch.Version, error)

	// Records returns every record for one patch. Order is not guaranteed;
	// validation and segregation happen downstream.
	Records(ctx context.Context, p patch.Version) ([]match.PlayerRecord, error)
}
