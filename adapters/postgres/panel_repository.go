package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/internal/governance"
)

// PanelRepository persists governed panel output. Append-only by contract:
// rows are inserted once and never updated, matching the immutability of
// aggregate rows themselves.
type PanelRepository struct {
	db *sqlx.DB
}

// NewPanelRepository creates a new panel repository
func NewPanelRepository(db *sqlx.DB) *PanelRepository {
	return &PanelRepository{db: db}
}

// SaveRows inserts one patch's governed rows in a single transaction
func (r *PanelRepository) SaveRows(ctx context.Context, records []panel.GovernanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO governed_rows (
			record_id, row_id, patch, entity_id, role, queue, aggregation_level,
			n, effective_n, uses_prior, winrate, ci_lo, ci_hi, pick_rate,
			governance_tag, data_quality_score, risk_level, compliant, record
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	for _, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal governance record: %w", err)
		}

		row := rec.Row
		_, err = tx.ExecContext(ctx, query,
			rec.RecordID.String(),
			string(row.RowID),
			row.PatchID.String(),
			string(row.Grain.EntityID),
			string(row.Grain.Role),
			string(row.Grain.Queue),
			string(row.Level),
			row.N,
			row.EffectiveN,
			row.UsesPrior,
			row.Winrate,
			row.CILo,
			row.CIHi,
			row.PickRate,
			string(rec.Tag),
			rec.QualityScore,
			string(rec.Risk),
			rec.Compliance.Compliant(),
			recordJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert governed row %s: %w", row.RowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit governed rows: %w", err)
	}
	return nil
}

// SaveValidationReport inserts one batch's governance posture
func (r *PanelRepository) SaveValidationReport(ctx context.Context, p patch.Version, report governance.ValidationReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal validation report: %w", err)
	}

	query := `
		INSERT INTO validation_reports (patch, total, compliant, non_compliant, pii_hits, report)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.ExecContext(ctx, query,
		p.String(), report.Total, report.Compliant, report.NonCompliant, report.PIIHits, reportJSON)
	if err != nil {
		return fmt.Errorf("failed to insert validation report for patch %s: %w", p, err)
	}
	return nil
}

// SaveComparison inserts one patch-pair summary
func (r *PanelRepository) SaveComparison(ctx context.Context, result panel.ComparisonResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison result: %w", err)
	}

	query := `
		INSERT INTO patch_comparisons (patch_from, patch_to, meta_shift_score, common_entities, result)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.db.ExecContext(ctx, query,
		result.PatchFrom.String(), result.PatchTo.String(),
		result.MetaShiftScore, result.CommonEntities, resultJSON)
	if err != nil {
		return fmt.Errorf("failed to insert comparison %s -> %s: %w", result.PatchFrom, result.PatchTo, err)
	}
	return nil
}

// RowsForPatch loads a patch's governed rows, strongest evidence first
func (r *PanelRepository) RowsForPatch(ctx context.Context, p patch.Version) ([]panel.GovernanceRecord, error) {
	query := `
		SELECT record
		FROM governed_rows
		WHERE patch = $1
		ORDER BY
			CASE governance_tag WHEN 'CONFIDENT' THEN 0 WHEN 'CAUTION' THEN 1 ELSE 2 END,
			data_quality_score DESC,
			n DESC`

	rows, err := r.db.QueryContext(ctx, query, p.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query rows for patch %s: %w", p, err)
	}
	defer rows.Close()

	var records []panel.GovernanceRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan governed row: %w", err)
		}
		var rec panel.GovernanceRecord
		if err := json.Unmarshal(recordJSON, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal governance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Comparison loads the most recent summary for an ordered patch pair
func (r *PanelRepository) Comparison(ctx context.Context, from, to patch.Version) (*panel.ComparisonResult, error) {
	query := `
		SELECT result
		FROM patch_comparisons
		WHERE patch_from = $1 AND patch_to = $2
		ORDER BY id DESC
		LIMIT 1`

	var resultJSON []byte
	err := r.db.QueryRowContext(ctx, query, from.String(), to.String()).Scan(&resultJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get comparison %s -> %s: %w", from, to, err)
	}

	var result panel.ComparisonResult
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal comparison result: %w", err)
	}
	return &result, nil
}

// SaveBatchManifest inserts one run's audit record
func (r *PanelRepository) SaveBatchManifest(ctx context.Context, batchID string, manifest interface{}) error {
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal batch manifest: %w", err)
	}

	query := `INSERT INTO batch_manifests (batch_id, manifest) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, batchID, manifestJSON); err != nil {
		return fmt.Errorf("failed to insert batch manifest %s: %w", batchID, err)
	}
	return nil
}
