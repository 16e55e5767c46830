package dedupe

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"imagedup/scan"
	"imagedup/suggest"
)

func exportFixture() []DuplicateGroup {
	return []DuplicateGroup{
		{
			ID:   "g-exact",
			Kind: MatchExact,
			Files: []scan.FileRecord{
				sized("/p/a.jpg", 100),
				sized("/p/b.jpg", 200),
			},
		},
		{
			ID:       "g-similar",
			Kind:     MatchSimilar,
			Distance: 4,
			Files: []scan.FileRecord{
				sized("/p/c.jpg", 300),
				sized("/p/d.jpg", 400),
			},
		},
	}
}

func TestExportJSONShape(t *testing.T) {
	data, err := ExportJSON(exportFixture(), suggest.KeepLargestFile)
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	var out []struct {
		MatchKind           string `json:"match_kind"`
		Distance            *int   `json:"distance"`
		Members             []any  `json:"members"`
		SuggestedKeeperPath string `json:"suggested_keeper_path"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("ExportJSON() output is not valid JSON: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("export has %d groups, want 2", len(out))
	}
	if out[0].Distance != nil {
		t.Error("exact group carries a distance")
	}
	if out[1].Distance == nil || *out[1].Distance != 4 {
		t.Error("similar group missing distance 4")
	}
	if out[0].SuggestedKeeperPath != "/p/b.jpg" {
		t.Errorf("keeper = %s, want /p/b.jpg (largest)", out[0].SuggestedKeeperPath)
	}
}

func TestWriteCSVActions(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, exportFixture(), suggest.KeepLargestFile); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("WriteCSV() output is not valid CSV: %v", err)
	}
	// Header plus one row per member.
	if len(rows) != 5 {
		t.Fatalf("CSV has %d rows, want 5", len(rows))
	}
	if rows[0][0] != "group_id" || rows[0][6] != "action" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	actions := map[string]string{}
	for _, row := range rows[1:] {
		actions[row[3]] = row[6]
	}
	if actions["/p/b.jpg"] != "keep" || actions["/p/a.jpg"] != "delete" {
		t.Errorf("exact group actions = %v", actions)
	}
	if actions["/p/d.jpg"] != "keep" || actions["/p/c.jpg"] != "delete" {
		t.Errorf("similar group actions = %v", actions)
	}
}
