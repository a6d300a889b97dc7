package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/patch"
	"metapanel/internal"
)

// Columns the reader requires in the header row
var requiredColumns = []string{
	"match_id", "player_key", "patch", "entity_id", "role", "queue", "win",
}

// MatchReader reads per-player per-match records from Excel or CSV exports
type MatchReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	log      *internal.Logger
}

// NewMatchReader creates a reader for the given file, dispatching on
// extension
func NewMatchReader(filePath string) *MatchReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &MatchReader{
		filePath: filePath,
		fileType: fileType,
		log:      internal.DefaultLogger.With("excel"),
	}
}

// ReadReport counts what the reader could and could not parse. Rows it
// cannot even place (unparseable patch) are skipped here; everything else
// flows through for downstream validation to judge.
type ReadReport struct {
	Rows    int `json:"rows"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
}

// ReadRecords reads every match record in the file
func (r *MatchReader) ReadRecords() ([]match.PlayerRecord, ReadReport, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, ReadReport{}, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, ReadReport{}, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, ReadReport{}, err
	}

	if len(rows) < 2 {
		return nil, ReadReport{}, fmt.Errorf("%s file must have a header row and at least one data row", r.filePath)
	}
	return r.processRows(rows)
}

func (r *MatchReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, nil
}

func (r *MatchReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into match records via the header row
func (r *MatchReader) processRows(rows [][]string) ([]match.PlayerRecord, ReadReport, error) {
	headers := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		headers[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := headers[col]; !ok {
			return nil, ReadReport{}, fmt.Errorf("missing required column %q in %s", col, r.filePath)
		}
	}

	report := ReadReport{Rows: len(rows) - 1}
	records := make([]match.PlayerRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := headers[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		version, err := patch.Parse(cell("patch"))
		if err != nil {
			// Without a patch the record cannot be grouped at all
			r.log.Warn("row %d: unparseable patch %q, skipping", i+2, cell("patch"))
			report.Skipped++
			continue
		}

		rec := match.PlayerRecord{
			MatchID:   core.MatchID(cell("match_id")),
			PlayerKey: core.PlayerKey(cell("player_key")),
			Patch:     version,
			EntityID:  core.EntityID(cell("entity_id")),
			Role:      match.Role(strings.ToUpper(cell("role"))),
			Queue:     match.Queue(strings.ToUpper(cell("queue"))),
			Win:       parseBool(cell("win")),
			Counters: match.Counters{
				Kills:       parseInt(cell("kills")),
				Deaths:      parseInt(cell("deaths")),
				Assists:     parseInt(cell("assists")),
				GoldEarned:  parseInt(cell("gold_earned")),
				DamageDealt: parseInt(cell("damage_dealt")),
				CreepScore:  parseInt(cell("creep_score")),
				DurationSec: parseFloat(cell("duration_sec")),
			},
			PlayedAt: parseTimestamp(cell("played_at")),
		}
		records = append(records, rec)
		report.Parsed++
	}

	r.log.Info("read %d of %d rows from %s (%d skipped)",
		report.Parsed, report.Rows, r.filePath, report.Skipped)
	return records, report, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "win", "yes":
		return true
	}
	return false
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// parseTimestamp accepts RFC3339 and the flat datetime format spreadsheet
// exports tend to use
func parseTimestamp(s string) core.Timestamp {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewTimestamp(t)
		}
	}
	return core.Timestamp{}
}
