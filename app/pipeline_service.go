package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"metapanel/adapters/stats/engine"
	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/internal"
	"metapanel/internal/config"
	apperrors "metapanel/internal/errors"
	"metapanel/internal/export"
	"metapanel/internal/governance"
	"metapanel/internal/leakage"
	"metapanel/internal/quantify"
	"metapanel/ports"
)

// PipelineService drives the whole batch: patch-ordered prior fold,
// per-patch aggregation, governance wrapping, leakage stamping, consecutive
// patch comparison, and panel export. The prior book is owned here and only
// here; patches are folded strictly oldest to newest.
type PipelineService struct {
	cfg    *config.Config
	agg    *engine.Aggregator
	gov    *governance.Framework
	guard  *leakage.Guard
	quant  *quantify.Quantifier
	source ports.MatchSource
	sink   ports.PanelSink
	repo   ports.PanelRepository
	log    *internal.Logger
}

// NewPipelineService wires the pipeline. The repository is optional; a nil
// repo runs the pipeline export-only.
func NewPipelineService(cfg *config.Config, source ports.MatchSource, sink ports.PanelSink, repo ports.PanelRepository, logger *internal.Logger) *PipelineService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PipelineService{
		cfg:    cfg,
		agg:    engine.NewAggregator(aggregatorOptions(cfg.Aggregation)),
		gov:    governance.New(cfg.Governance),
		guard:  leakage.NewGuard(cfg.Leakage.BufferPatches),
		quant:  quantify.New(quantify.DefaultOptions()),
		source: source,
		sink:   sink,
		repo:   repo,
		log:    logger.With("pipeline"),
	}
}

// aggregatorOptions maps configuration onto engine options
func aggregatorOptions(cfg config.AggregationConfig) engine.Options {
	opts := engine.Options{
		MinN:         cfg.MinN,
		Alpha:        cfg.Alpha,
		UsePrior:     cfg.UsePrior,
		PriorWindow:  cfg.PriorWindow,
		Decay:        cfg.Decay,
		PriorMinN:    cfg.PriorMinN,
		Alpha0:       cfg.Alpha0,
		Beta0:        cfg.Beta0,
		TargetOnly:   cfg.TargetOnly,
		EmitWeakRows: cfg.EmitWeakRows,
	}
	if len(cfg.CoverageTargets) > 0 {
		opts.Coverage = make(map[core.EntityID]bool, len(cfg.CoverageTargets))
		for _, target := range cfg.CoverageTargets {
			opts.Coverage[core.EntityID(target)] = true
		}
	}
	return opts
}

// BatchManifest is the per-run audit record
type BatchManifest struct {
	BatchID core.BatchID    `json:"batch_id"`
	Patches []patch.Version `json:"patches"`

	RecordsIngested int `json:"records_ingested"`
	RecordsRejected int `json:"records_rejected"`

	RowsEmitted int                            `json:"rows_emitted"`
	RowsByLevel map[panel.AggregationLevel]int `json:"rows_by_level"`
	Dropped     map[engine.DropReason]int      `json:"dropped"`
	Rejections  map[match.RejectionCode]int    `json:"rejections,omitempty"`
	TagCounts   map[string]int                 `json:"tag_counts,omitempty"`

	NonCompliantRows  int `json:"non_compliant_rows"`
	PIIHits           int `json:"pii_hits"`
	LeakageViolations int `json:"leakage_violations"`
	Comparisons       int `json:"comparisons"`

	Fingerprint core.Hash      `json:"fingerprint"`
	StartedAt   core.Timestamp `json:"started_at"`
	RuntimeMs   int64          `json:"runtime_ms"`
	Success     bool           `json:"success"`
}

// Run executes the batch over every patch the source holds
func (s *PipelineService) Run(ctx context.Context) (*BatchManifest, error) {
	start := time.Now()

	patches, err := s.source.Patches(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "listing source patches")
	}
	if len(patches) == 0 {
		return nil, apperrors.InputRejected("source holds no patches")
	}
	patch.Sort(patches)

	manifest := &BatchManifest{
		BatchID:     core.BatchID(core.NewID()),
		Patches:     patches,
		RowsByLevel: make(map[panel.AggregationLevel]int),
		Dropped:     make(map[engine.DropReason]int),
		Rejections:  make(map[match.RejectionCode]int),
		TagCounts:   make(map[string]int),
		StartedAt:   core.NewTimestamp(start),
	}

	var book *engine.PriorBook
	if s.cfg.Aggregation.UsePrior {
		book = engine.NewPriorBook(s.cfg.Aggregation.PriorWindow, s.cfg.Aggregation.Decay)
	}

	governedByPatch := make(map[string][]panel.GovernanceRecord, len(patches))

	for _, p := range patches {
		governed, err := s.runPatch(ctx, p, book, manifest)
		if err != nil {
			return nil, err
		}
		governedByPatch[p.String()] = governed
	}

	comparisons, err := s.comparePatches(ctx, patches, governedByPatch)
	if err != nil {
		return nil, err
	}
	manifest.Comparisons = len(comparisons)

	if err := s.sink.WriteSummaries(ctx, comparisons); err != nil {
		return nil, apperrors.Wrap(err, "writing patch summaries")
	}

	manifest.RuntimeMs = time.Since(start).Milliseconds()
	manifest.Success = true
	manifest.Fingerprint = s.fingerprint(manifest)
	s.log.Info("batch complete: %d patches, %d rows, %d comparisons in %dms",
		len(patches), manifest.RowsEmitted, manifest.Comparisons, manifest.RuntimeMs)
	return manifest, nil
}

// runPatch takes one patch from raw records to exported panels
func (s *PipelineService) runPatch(ctx context.Context, p patch.Version, book *engine.PriorBook, manifest *BatchManifest) ([]panel.GovernanceRecord, error) {
	records, err := s.source.Records(ctx, p)
	if err != nil {
		return nil, apperrors.Wrapf(err, "reading records for patch %s", p)
	}

	clean, ingest := match.ValidateBatch(records, p)
	manifest.RecordsIngested += ingest.Accepted
	manifest.RecordsRejected += ingest.Rejected
	for code, count := range ingest.ByCode {
		manifest.Rejections[code] += count
	}
	if ingest.Rejected > 0 {
		s.log.Warn("patch %s: rejected %d of %d records at ingestion", p, ingest.Rejected, len(records))
	}

	result, err := s.agg.AggregatePatch(ctx, p, clean, book)
	if err != nil {
		return nil, apperrors.Wrapf(err, "aggregating patch %s", p)
	}
	manifest.RowsEmitted += len(result.Rows)
	for level, count := range result.RowsByLevel {
		manifest.RowsByLevel[level] += count
	}
	for reason, count := range result.Dropped {
		manifest.Dropped[reason] += count
	}

	governed, report := s.gov.GovernAll(result.Rows)
	manifest.NonCompliantRows += report.NonCompliant
	manifest.PIIHits += report.PIIHits
	for tag, count := range report.TagCounts {
		manifest.TagCounts[string(tag)] += count
	}

	violations := s.guard.StampAll(governed)
	manifest.LeakageViolations += violations
	if s.cfg.Leakage.Strict && violations > 0 {
		return nil, apperrors.WithCode(apperrors.CodeLeakageViolation,
			fmt.Errorf("%w: patch %s has %d violating rows", core.ErrLeakage, p, violations))
	}

	if s.repo != nil {
		if err := s.repo.SaveRows(ctx, governed); err != nil {
			return nil, apperrors.Wrapf(err, "persisting rows for patch %s", p)
		}
		if err := s.repo.SaveValidationReport(ctx, p, report); err != nil {
			return nil, apperrors.Wrapf(err, "persisting validation report for patch %s", p)
		}
	}

	parts := export.Partition(governed, export.Options{MaxEntityRows: s.cfg.Export.MaxRecordsPerFile})
	if err := s.sink.WritePanels(ctx, p, parts); err != nil {
		return nil, apperrors.Wrapf(err, "exporting panels for patch %s", p)
	}

	// Fold the patch into history only after it has been aggregated, so the
	// book stays strictly behind the target at all times
	if book != nil {
		if err := book.ObservePatch(p, clean); err != nil {
			return nil, apperrors.Wrapf(err, "folding patch %s into prior history", p)
		}
	}

	s.log.Info("patch %s: %d records -> %d rows (%d dropped, %d non-compliant)",
		p, len(clean), len(result.Rows), result.Dropped[engine.DropBelowMinN], report.NonCompliant)
	return governed, nil
}

// comparePatches quantifies every consecutive patch pair
func (s *PipelineService) comparePatches(ctx context.Context, patches []patch.Version, governedByPatch map[string][]panel.GovernanceRecord) ([]panel.ComparisonResult, error) {
	comparisons := make([]panel.ComparisonResult, 0, len(patches))
	for i := 1; i < len(patches); i++ {
		from, to := patches[i-1], patches[i]
		result := s.quant.Compare(from, to, governedByPatch[from.String()], governedByPatch[to.String()])
		s.log.Debug("compared %s -> %s: meta shift %.4f over %d entities",
			from, to, result.MetaShiftScore, result.CommonEntities)

		if s.repo != nil {
			if err := s.repo.SaveComparison(ctx, result); err != nil {
				return nil, apperrors.Wrapf(err, "persisting comparison %s -> %s", from, to)
			}
		}
		comparisons = append(comparisons, result)
	}
	return comparisons, nil
}

// fingerprint derives a deterministic digest of what the batch did
func (s *PipelineService) fingerprint(m *BatchManifest) core.Hash {
	versions := make([]string, len(m.Patches))
	for i, p := range m.Patches {
		versions[i] = p.String()
	}
	return core.ComputeRowFingerprint(map[string]interface{}{
		"patches":  strings.Join(versions, ","),
		"ingested": m.RecordsIngested,
		"rejected": m.RecordsRejected,
		"rows":     m.RowsEmitted,
		"dropped":  m.Dropped[engine.DropBelowMinN],
	})
}
