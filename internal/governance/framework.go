package governance

import (
	"fmt"
	"time"

	"metapanel/domain/core"
	"metapanel/domain/panel"
	"metapanel/domain/stats"
	"metapanel/internal/config"
)

// Framework wraps aggregate rows in their governance envelope: quality
// scores, compliance posture, evidence tag, risk level, and lineage. It
// annotates only; the wrapped row is never touched.
type Framework struct {
	cfg        config.GovernanceConfig
	thresholds stats.TagThresholds
	clock      func() time.Time
}

// New creates a governance framework with the default evidence thresholds
func New(cfg config.GovernanceConfig) *Framework {
	return &Framework{
		cfg:        cfg,
		thresholds: stats.DefaultTagThresholds(),
		clock:      time.Now,
	}
}

// ValidationReport summarizes governance over one batch of rows. Failures are
// surfaced here, never silently dropped.
type ValidationReport struct {
	Total          int                         `json:"total"`
	Compliant      int                         `json:"compliant"`
	NonCompliant   int                         `json:"non_compliant"`
	PIIHits        int                         `json:"pii_hits"`
	TagCounts      map[stats.GovernanceTag]int `json:"tag_counts"`
	ErrorsByRecord map[core.RowID][]string     `json:"errors_by_record,omitempty"`
}

// Govern builds the governance record for one aggregate row
func (f *Framework) Govern(row panel.AggregateRow) panel.GovernanceRecord {
	now := f.clock()

	var validationErrors []string
	if err := row.Validate(); err != nil {
		validationErrors = append(validationErrors, err.Error())
	}

	piiHits := scanPII(map[string]string{
		"entity_id":      string(row.Grain.EntityID),
		"role":           string(row.Grain.Role),
		"queue":          string(row.Grain.Queue),
		"metric_version": row.MetricVersion,
	})
	validationErrors = append(validationErrors, piiHits...)

	quality := f.scoreQuality(row, now)

	compliance := panel.ComplianceCheck{
		// Rows carry no player identity by construction; the scan verifies
		// nothing identifying survived into the grouped output
		AnonymizationValidated: len(piiHits) == 0,
		PIIFree:                len(piiHits) == 0,
		RegulatoryCompliant:    len(validationErrors) == 0,
	}

	tag := stats.GovernanceTagFor(row.EffectiveN, row.CIWidth(), f.thresholds)
	qualityScore := stats.QualityScore(row.EffectiveN, row.CIWidth(), row.OutlierFlag)

	return panel.GovernanceRecord{
		RecordID:         core.NewID(),
		Row:              row,
		Quality:          quality,
		Compliance:       compliance,
		Tag:              tag,
		QualityScore:     qualityScore,
		Risk:             panel.DeriveRiskLevel(quality.Overall, compliance),
		Lineage:          f.lineage(row, now),
		ValidationErrors: validationErrors,
		CreatedAt:        core.NewTimestamp(now),
	}
}

// GovernAll wraps every row in a batch and reports the batch posture
func (f *Framework) GovernAll(rows []panel.AggregateRow) ([]panel.GovernanceRecord, ValidationReport) {
	records := make([]panel.GovernanceRecord, 0, len(rows))
	report := ValidationReport{
		Total:          len(rows),
		TagCounts:      make(map[stats.GovernanceTag]int),
		ErrorsByRecord: make(map[core.RowID][]string),
	}

	for _, row := range rows {
		rec := f.Govern(row)
		records = append(records, rec)

		report.TagCounts[rec.Tag]++
		if !rec.Compliance.PIIFree {
			report.PIIHits++
		}
		if rec.Compliance.Compliant() && len(rec.ValidationErrors) == 0 {
			report.Compliant++
		} else {
			report.NonCompliant++
			report.ErrorsByRecord[row.RowID] = rec.ValidationErrors
		}
	}
	return records, report
}

// scoreQuality runs the six dimension scorers and combines them with equal
// weights
func (f *Framework) scoreQuality(row panel.AggregateRow, now time.Time) panel.DataQuality {
	q := panel.DataQuality{
		Completeness: completeness(row),
		Accuracy:     accuracy(row, f.cfg.KDATolerance),
		Consistency:  consistency(row),
		Timeliness:   timeliness(row, f.cfg.FreshnessWindow, now),
		Validity:     validity(row),
		Uniqueness:   uniqueness(row),
	}
	q.Overall = (q.Completeness + q.Accuracy + q.Consistency + q.Timeliness + q.Validity + q.Uniqueness) / 6
	return q
}

// lineage records where the row came from and what it depends on
func (f *Framework) lineage(row panel.AggregateRow, now time.Time) panel.Lineage {
	transform := fmt.Sprintf("aggregate_%s", row.Level)
	deps := []string{
		fmt.Sprintf("patch:%s", row.PatchID),
		fmt.Sprintf("grain:%s", row.Grain),
	}
	for _, src := range row.PriorSourcePatches {
		deps = append(deps, fmt.Sprintf("prior:%s", src))
	}

	return panel.Lineage{
		SourceSystem:  f.cfg.SourceSystem,
		SourceTable:   f.cfg.SourceTable,
		TransformID:   transform,
		TransformedAt: core.NewTimestamp(now),
		Dependencies:  deps,
		Hash:          core.ComputeLineageHash(f.cfg.SourceSystem, transform, deps),
	}
}
