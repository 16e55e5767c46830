// Package deletion executes file removals with recoverable semantics,
// per-file failure isolation, and an append-only audit trail.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"imagedup/scan"
	"imagedup/trash"
)

// Method is how a file is removed.
type Method string

const (
	// MethodRecycleBin moves files to the platform trash. On failure the
	// file is recorded as failed; there is never a silent fallback to
	// permanent deletion.
	MethodRecycleBin Method = "recycle_bin"
	// MethodPermanent removes files irreversibly. Only reachable with
	// Request.ConfirmedPermanent set; the caller owns the confirmation
	// prompt.
	MethodPermanent Method = "permanent"
	// MethodDryRun validates and records without touching anything.
	MethodDryRun Method = "dry_run"
)

// State of a deletion run.
type State string

const (
	StateRequested  State = "requested"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
)

// Outcome of one deletion attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Record is one deletion attempt. Records are written append-only and
// never mutated; the audit log is fully reconstructible from them.
type Record struct {
	Path      string         `json:"path"`
	GroupID   string         `json:"group_id"`
	Method    Method         `json:"method"`
	Outcome   Outcome        `json:"outcome"`
	ErrorKind scan.ErrorKind `json:"error_kind,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Skip is a file dropped during validation, before execution.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Summary of a completed run. Succeeded+Failed always equals the number
// of validated files, and no file reports both outcomes.
type Summary struct {
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	BytesFreed int64 `json:"bytes_freed"`
}

// Report is the durable outcome of one deletion run, serialized as a
// single JSON object in the audit log.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Mode      Method    `json:"mode"`
	State     State     `json:"state"`
	Records   []Record  `json:"records"`
	Skipped   []Skip    `json:"skipped,omitempty"`
	Summary   Summary   `json:"summary"`
	LogPath   string    `json:"-"`
}

// Candidate is one file selected for removal.
type Candidate struct {
	Path    string
	GroupID string
	Size    int64
}

// Request describes one deletion run.
type Request struct {
	Files  []Candidate
	Method Method
	// ConfirmedPermanent must be set by the caller after obtaining
	// explicit confirmation; MethodPermanent is refused without it.
	ConfirmedPermanent bool
}

// ErrRunInProgress means another deletion run holds the manager.
var ErrRunInProgress = errors.New("deletion: another run is already executing")

// ErrNotConfirmed means a permanent run was requested without the
// confirmation flag.
var ErrNotConfirmed = errors.New("deletion: permanent deletion requires explicit confirmation")

// Manager executes deletion runs. Files within a run are processed
// sequentially so the audit log is strictly ordered; the run lock keeps
// two runs from racing on the trash subsystem or overlapping file sets.
type Manager struct {
	runLock sync.Mutex

	roots    []string
	auditDir string
	log      *slog.Logger

	// moveToTrash and removeFile are the removal capabilities; replaced
	// in tests.
	moveToTrash func(path string) error
	removeFile  func(path string) error

	Reporter scan.Reporter
}

// NewManager builds a manager that only deletes inside the given scanned
// roots and writes one audit file per run under auditDir.
func NewManager(roots []string, auditDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		if a, err := filepath.Abs(r); err == nil {
			abs = append(abs, a)
		}
	}
	return &Manager{
		roots:       abs,
		auditDir:    auditDir,
		log:         logger,
		moveToTrash: trash.Move,
		removeFile:  os.Remove,
	}
}

// Execute runs one deletion. Fatal errors (bad request, audit log
// destination unavailable, manager busy) surface before any file is
// touched; everything after that is recovered per file.
func (m *Manager) Execute(ctx context.Context, req Request) (*Report, error) {
	if !m.runLock.TryLock() {
		return nil, ErrRunInProgress
	}
	defer m.runLock.Unlock()

	switch req.Method {
	case MethodRecycleBin, MethodDryRun:
	case MethodPermanent:
		if !req.ConfirmedPermanent {
			return nil, ErrNotConfirmed
		}
	default:
		return nil, fmt.Errorf("deletion: unknown method %q", req.Method)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Mode:      req.Method,
		State:     StateRequested,
	}

	// The audit destination must be writable before anything happens.
	auditFile, err := m.openAuditLog(report)
	if err != nil {
		return nil, fmt.Errorf("deletion: cannot open audit log: %w", err)
	}
	defer auditFile.Close()

	report.State = StateValidating
	validated := m.validate(req.Files, report)
	if len(validated) == 0 {
		report.State = StateAborted
		m.log.Warn("deletion run aborted: no files passed validation", "run_id", report.RunID)
		return report, m.writeAuditLog(auditFile, report)
	}

	report.State = StateExecuting
	m.log.Info("deletion run starting",
		"run_id", report.RunID, "mode", req.Method, "files", len(validated))

	for i, cand := range validated {
		// Cooperative cancellation between files; an in-flight removal
		// always completes.
		if ctx.Err() != nil {
			report.State = StateAborted
			m.log.Warn("deletion run cancelled", "run_id", report.RunID, "completed", i)
			return report, m.writeAuditLog(auditFile, report)
		}
		rec := m.deleteOne(cand, req.Method)
		report.Records = append(report.Records, rec)
		if rec.Outcome == OutcomeSucceeded {
			report.Summary.Succeeded++
			if req.Method != MethodDryRun {
				report.Summary.BytesFreed += cand.Size
			}
		} else {
			report.Summary.Failed++
		}
		if m.Reporter != nil {
			m.Reporter.Report(scan.Progress{FilesScanned: i + 1, Stage: scan.StageDeleting, Path: cand.Path})
		}
	}

	report.State = StateCompleted
	m.log.Info("deletion run complete",
		"run_id", report.RunID,
		"succeeded", report.Summary.Succeeded,
		"failed", report.Summary.Failed,
		"bytes_freed", report.Summary.BytesFreed)
	return report, m.writeAuditLog(auditFile, report)
}

// validate drops stale selections: a file must still exist and must live
// under a scanned root. Drops are recorded, not fatal.
func (m *Manager) validate(files []Candidate, report *Report) []Candidate {
	validated := make([]Candidate, 0, len(files))
	for _, cand := range files {
		abs, err := filepath.Abs(cand.Path)
		if err != nil {
			report.Skipped = append(report.Skipped, Skip{Path: cand.Path, Reason: "unresolvable path"})
			continue
		}
		if _, err := os.Lstat(abs); err != nil {
			report.Skipped = append(report.Skipped, Skip{Path: abs, Reason: "file no longer exists"})
			m.log.Warn("dropping vanished file from deletion run", "path", abs)
			continue
		}
		if !m.withinRoots(abs) {
			report.Skipped = append(report.Skipped, Skip{Path: abs, Reason: "outside scanned roots"})
			m.log.Warn("dropping file outside scanned roots", "path", abs)
			continue
		}
		cand.Path = abs
		validated = append(validated, cand)
	}
	return validated
}

func (m *Manager) withinRoots(path string) bool {
	for _, root := range m.roots {
		if rel, err := filepath.Rel(root, path); err == nil &&
			rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// deleteOne attempts a single removal; its failure never blocks the
// remaining files.
func (m *Manager) deleteOne(cand Candidate, method Method) Record {
	rec := Record{
		Path:      cand.Path,
		GroupID:   cand.GroupID,
		Method:    method,
		Timestamp: time.Now(),
	}

	var err error
	switch method {
	case MethodDryRun:
		// validated above; nothing to do
	case MethodRecycleBin:
		err = m.moveToTrash(cand.Path)
	case MethodPermanent:
		err = m.removeFile(cand.Path)
	}

	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.ErrorKind = classifyDeletion(err)
		rec.Error = err.Error()
		m.log.Warn("deletion failed", "path", cand.Path, "kind", rec.ErrorKind, "err", err)
		return rec
	}
	rec.Outcome = OutcomeSucceeded
	m.log.Debug("deleted", "path", cand.Path, "method", method)
	return rec
}

func classifyDeletion(err error) scan.ErrorKind {
	if errors.Is(err, trash.ErrUnsupported) {
		return scan.KindUnsupportedTrash
	}
	return scan.Classify(err)
}
