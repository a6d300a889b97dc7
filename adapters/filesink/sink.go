package filesink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/internal"
	"metapanel/internal/export"
	"metapanel/ports"
)

// Sink writes panels as newline-delimited JSON files under one output
// directory:
//
//	entity_panel_<patch>.ndjson
//	context_panel_<patch>.ndjson
//	patch_summaries.ndjson
type Sink struct {
	dir string
	log *internal.Logger
}

var _ ports.PanelSink = (*Sink)(nil)

// New creates a file sink rooted at dir, creating it if needed
func New(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Sink{dir: dir, log: internal.DefaultLogger.With("filesink")}, nil
}

// WritePanels emits the entity and context panels for one patch
func (s *Sink) WritePanels(_ context.Context, p patch.Version, parts export.Partitions) error {
	entityPath := filepath.Join(s.dir, fmt.Sprintf("entity_panel_%s.ndjson", p))
	if err := s.writeFile(entityPath, parts.Entity); err != nil {
		return err
	}
	contextPath := filepath.Join(s.dir, fmt.Sprintf("context_panel_%s.ndjson", p))
	if err := s.writeFile(contextPath, parts.Context); err != nil {
		return err
	}
	s.log.Info("patch %s: wrote %d entity rows, %d context rows", p, len(parts.Entity), len(parts.Context))
	return nil
}

func (s *Sink) writeFile(path string, records []panel.GovernanceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create panel file %s: %w", path, err)
	}
	defer f.Close()

	if err := export.WritePanel(f, records); err != nil {
		return fmt.Errorf("failed to write panel file %s: %w", path, err)
	}
	return f.Close()
}

// WriteSummaries emits every patch-pair summary for the run
func (s *Sink) WriteSummaries(_ context.Context, comparisons []panel.ComparisonResult) error {
	path := filepath.Join(s.dir, "patch_summaries.ndjson")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file %s: %w", path, err)
	}
	defer f.Close()

	if err := export.WriteSummaries(f, comparisons); err != nil {
		return fmt.Errorf("failed to write summary file %s: %w", path, err)
	}
	return f.Close()
}
