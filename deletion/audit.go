package deletion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// openAuditLog creates the audit file for a run before any file is
// touched. One file per run; an existing file is never rewritten.
func (m *Manager) openAuditLog(report *Report) (*os.File, error) {
	if err := os.MkdirAll(m.auditDir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("deletion_%s_%s.json",
		report.StartedAt.Format("20060102_150405"), report.RunID)
	path := filepath.Join(m.auditDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	report.LogPath = path
	return f, nil
}

func (m *Manager) writeAuditLog(f *os.File, report *Report) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("deletion: writing audit log: %w", err)
	}
	return f.Sync()
}

// Preview summarizes what a run over the given candidates would do,
// without acquiring the run lock or writing an audit record.
type Preview struct {
	Deletable   []Candidate
	Blocked     []Skip
	Reclaimed   int64
	GeneratedAt time.Time
}

// PreviewRun validates candidates and totals the space a real run would
// free. Blocked entries carry the same reasons validation would record.
func (m *Manager) PreviewRun(files []Candidate) Preview {
	p := Preview{GeneratedAt: time.Now()}
	report := &Report{}
	for _, cand := range m.validate(files, report) {
		p.Deletable = append(p.Deletable, cand)
		p.Reclaimed += cand.Size
	}
	p.Blocked = report.Skipped
	return p
}
