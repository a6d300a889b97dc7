package excel

import (
	"context"
	"sync"

	"metapanel/domain/match"
	"metapanel/domain/patch"
	"metapanel/ports"
)

// Source adapts a match-record file to the pipeline's ingestion port. The
// file is read once, lazily, and records are served grouped by patch.
type Source struct {
	reader *MatchReader

	once    sync.Once
	byPatch map[string][]match.PlayerRecord
	patches []patch.Version
	loadErr error
}

var _ ports.MatchSource = (*Source)(nil)

// NewSource creates a file-backed match source
func NewSource(filePath string) *Source {
	return &Source{reader: NewMatchReader(filePath)}
}

func (s *Source) load() {
	s.once.Do(func() {
		records, _, err := s.reader.ReadRecords()
		if err != nil {
			s.loadErr = err
			return
		}

		s.byPatch = make(map[string][]match.PlayerRecord)
		for _, rec := range records {
			key := rec.Patch.String()
			if _, seen := s.byPatch[key]; !seen {
				s.patches = append(s.patches, rec.Patch)
			}
			s.byPatch[key] = append(s.byPatch[key], rec)
		}
		patch.Sort(s.patches)
	})
}

// Patches lists the patch versions present in the file, ascending
func (s *Source) Patches(context.Context) ([]patch.Version, error) {
	s.load()
	return s.patches, s.loadErr
}

// Records returns every record for one patch
func (s *Source) Records(_ context.Context, p patch.Version) ([]match.PlayerRecord, error) {
	s.load()
	return s.byPatch[p.String()], s.loadErr
}
