package match

import (
	"metapanel/domain/core"
	"metapanel/domain/patch"
)

// RejectionCode classifies why a record was rejected at ingestion
type RejectionCode string

const (
	RejectMissingField RejectionCode = "MISSING_FIELD"
	RejectCrossPatch   RejectionCode = "CROSS_PATCH"
)

// Rejection records one rejected record with its identity and reason
type Rejection struct {
	RecordIdentity string        `json:"record_identity"`
	Code           RejectionCode `json:"code"`
	Reason         string        `json:"reason"`
}

// IngestReport summarizes a validation pass over a record batch
type IngestReport struct {
	Accepted   int                   `json:"accepted"`
	Rejected   int                   `json:"rejected"`
	Rejections []Rejection           `json:"rejections,omitempty"`
	ByCode     map[RejectionCode]int `json:"by_code"`
}

// ValidateBatch validates a batch of records destined for one patch. Records
// that fail field validation or carry a foreign patch version are rejected
// with their identity recorded; the clean remainder is returned for
// aggregation. Cross-patch contamination is a hard input error, never
// coerced.
func ValidateBatch(records []PlayerRecord, target patch.Version) ([]PlayerRecord, IngestReport) {
	report := IngestReport{ByCode: make(map[RejectionCode]int)}
	clean := make([]PlayerRecord, 0, len(records))

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			report.Rejected++
			report.ByCode[RejectMissingField]++
			report.Rejections = append(report.Rejections, Rejection{
				RecordIdentity: rec.Identity(),
				Code:           RejectMissingField,
				Reason:         err.Error(),
			})
			continue
		}
		if !rec.Patch.Equal(target) {
			report.Rejected++
			report.ByCode[RejectCrossPatch]++
			report.Rejections = append(report.Rejections, Rejection{
				RecordIdentity: rec.Identity(),
				Code:           RejectCrossPatch,
				Reason:         core.NewCrossPatchError(target.String(), rec.Patch.String()).Error(),
			})
			continue
		}
		report.Accepted++
		clean = append(clean, rec)
	}

	return clean, report
}
