package panel

import (
	"metapanel/domain/core"
	"metapanel/domain/stats"
)

// DataQuality scores a record across six independent dimensions, each in
// [0,1], plus the combined overall score.
type DataQuality struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Timeliness   float64 `json:"timeliness"`
	Validity     float64 `json:"validity"`
	Uniqueness   float64 `json:"uniqueness"`
	Overall      float64 `json:"overall_score"`
}

// ComplianceCheck captures the privacy/regulatory posture of a record
type ComplianceCheck struct {
	AnonymizationValidated bool `json:"anonymization_validated"`
	PIIFree                bool `json:"pii_free"`
	RegulatoryCompliant    bool `json:"regulatory_compliant"`
}

// Compliant returns true only when every compliance dimension holds
func (c ComplianceCheck) Compliant() bool {
	return c.AnonymizationValidated && c.PIIFree && c.RegulatoryCompliant
}

// RiskLevel classifies the operational risk of consuming a record
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// DeriveRiskLevel maps (overall quality, compliance) onto a risk level.
// Deterministic: LOW needs overall >= 0.9 and full compliance; MEDIUM needs
// overall >= 0.7 and validated anonymization; everything else is HIGH.
func DeriveRiskLevel(overall float64, c ComplianceCheck) RiskLevel {
	switch {
	case overall >= 0.9 && c.Compliant():
		return RiskLow
	case overall >= 0.7 && c.AnonymizationValidated:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Lineage records where a governed record came from and what it depends on
type Lineage struct {
	SourceSystem  string           `json:"source_system"`
	SourceTable   string           `json:"source_table"`
	TransformID   string           `json:"transform_id"`
	TransformedAt core.Timestamp   `json:"transformed_at"`
	Dependencies  []string         `json:"dependencies,omitempty"`
	Hash          core.LineageHash `json:"lineage_hash"`
}

// GovernanceRecord is the quality/compliance envelope around one aggregate
// row. It wraps the row; it never mutates it. Read-only after creation.
type GovernanceRecord struct {
	RecordID core.ID      `json:"record_id"`
	Row      AggregateRow `json:"row"`

	Quality      DataQuality         `json:"data_quality"`
	Compliance   ComplianceCheck     `json:"compliance"`
	Tag          stats.GovernanceTag `json:"governance_tag"`
	QualityScore float64             `json:"data_quality_score"`
	Risk         RiskLevel           `json:"risk_level"`
	Lineage      Lineage             `json:"lineage"`

	ValidationErrors []string    `json:"validation_errors,omitempty"`
	Guard            *GuardStamp `json:"leakage_guard,omitempty"`

	CreatedAt core.Timestamp `json:"created_at"`
}

// ExportEligible reports whether the record may enter the entity panel.
// Non-compliant records are excluded from production output but still
// surfaced in validation reports.
func (g GovernanceRecord) ExportEligible() bool {
	return g.Compliance.Compliant() && len(g.ValidationErrors) == 0
}
