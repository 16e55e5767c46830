package dedupe

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"imagedup/scan"
	"imagedup/suggest"
)

type exportMember struct {
	Path       string           `json:"path"`
	Size       int64            `json:"size"`
	Resolution *scan.Resolution `json:"resolution,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

type exportGroup struct {
	MatchKind           MatchKind      `json:"match_kind"`
	Distance            *int           `json:"distance,omitempty"`
	Members             []exportMember `json:"members"`
	SuggestedKeeperPath string         `json:"suggested_keeper_path"`
}

// ExportJSON serializes the group list for external inspection, one
// entry per group with the keeper the given strategy would suggest.
func ExportJSON(groups []DuplicateGroup, strategy suggest.Strategy) ([]byte, error) {
	out := make([]exportGroup, 0, len(groups))
	for _, g := range groups {
		eg := exportGroup{
			MatchKind: g.Kind,
			Members:   make([]exportMember, 0, len(g.Files)),
		}
		if g.Kind == MatchSimilar {
			d := g.Distance
			eg.Distance = &d
		}
		for _, f := range g.Files {
			eg.Members = append(eg.Members, exportMember{
				Path:       f.Path,
				Size:       f.Size,
				Resolution: f.Resolution,
				CreatedAt:  f.CreatedAt,
			})
		}
		if s, err := suggest.Suggest(g.Files, strategy); err == nil {
			eg.SuggestedKeeperPath = s.Keeper.Path
		}
		out = append(out, eg)
	}
	return json.MarshalIndent(out, "", "  ")
}

// WriteCSV writes one row per group member with the action the given
// strategy implies for it.
func WriteCSV(w io.Writer, groups []DuplicateGroup, strategy suggest.Strategy) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"group_id", "match_kind", "distance", "path", "size", "created_at", "action"}); err != nil {
		return err
	}
	for _, g := range groups {
		keeper := ""
		if s, err := suggest.Suggest(g.Files, strategy); err == nil {
			keeper = s.Keeper.Path
		}
		distance := ""
		if g.Kind == MatchSimilar {
			distance = strconv.Itoa(g.Distance)
		}
		for _, f := range g.Files {
			action := "delete"
			if f.Path == keeper {
				action = "keep"
			}
			row := []string{
				g.ID,
				string(g.Kind),
				distance,
				f.Path,
				strconv.FormatInt(f.Size, 10),
				f.CreatedAt.Format(time.RFC3339),
				action,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
