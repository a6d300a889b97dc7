package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"metapanel/domain/match"
	"metapanel/domain/patch"
)

const sampleCSV = `match_id,player_key,patch,entity_id,role,queue,win,kills,deaths,assists,gold_earned,damage_dealt,creep_score,duration_sec,played_at
NA1_100,pk_aaaa,14.1,champ_ahri,MID,RANKED_SOLO,1,7,2,9,12500,21000,204,1820,2024-01-15T12:00:00Z
NA1_100,pk_bbbb,14.1,champ_darius,TOP,RANKED_SOLO,0,2,6,3,9800,15400,170,1820,2024-01-15T12:00:00Z
NA1_101,pk_cccc,14.2,champ_ahri,MID,RANKED_SOLO,true,11,1,4,14100,26800,231,2100,2024-01-22 13:30:00
NA1_102,pk_dddd,not-a-patch,champ_zed,MID,RANKED_SOLO,1,5,5,5,11000,19000,190,1700,2024-01-22T14:00:00Z
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matches.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}
	return path
}

func TestMatchReader_CSV(t *testing.T) {
	records, report, err := NewMatchReader(writeSample(t)).ReadRecords()
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}

	if report.Rows != 4 || report.Parsed != 3 || report.Skipped != 1 {
		t.Errorf("report = %+v, want 4 rows, 3 parsed, 1 skipped", report)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	first := records[0]
	if first.MatchID != "NA1_100" || first.EntityID != "champ_ahri" {
		t.Errorf("first record identity = %s/%s", first.MatchID, first.EntityID)
	}
	if !first.Win || first.Counters.Kills != 7 || first.Counters.DurationSec != 1820 {
		t.Errorf("first record counters = win=%v %+v", first.Win, first.Counters)
	}
	if first.PlayedAt.IsZero() {
		t.Errorf("timestamp not parsed")
	}
	if !records[2].Win {
		t.Errorf("textual win flag not parsed")
	}
	if records[2].PlayedAt.IsZero() {
		t.Errorf("flat datetime format not parsed")
	}
}

func TestMatchReader_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("match_id,player_key\nx,y\n"), 0o644); err != nil {
		t.Fatalf("writing sample: %v", err)
	}
	if _, _, err := NewMatchReader(path).ReadRecords(); err == nil {
		t.Fatalf("expected missing-column error")
	}
}

func TestSource_GroupsByPatch(t *testing.T) {
	source := NewSource(writeSample(t))
	ctx := context.Background()

	patches, err := source.Patches(ctx)
	if err != nil {
		t.Fatalf("Patches: %v", err)
	}
	if len(patches) != 2 || !patches[0].Equal(patch.MustParse("14.1")) {
		t.Fatalf("patches = %v, want [14.1 14.2]", patches)
	}

	records, err := source.Records(ctx, patch.MustParse("14.1"))
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("patch 14.1 records = %d, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Role != match.RoleMid && rec.Role != match.RoleTop {
			t.Errorf("unexpected role %s", rec.Role)
		}
	}
}
