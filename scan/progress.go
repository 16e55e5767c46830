package scan

// Stage identifies which phase of the pipeline a progress event came from.
type Stage string

const (
	StageScanning   Stage = "scanning"
	StageHashing    Stage = "hashing"
	StageClustering Stage = "clustering"
	StageDeleting   Stage = "deleting"
)

// Progress is one progress event. Path may be empty.
type Progress struct {
	FilesScanned int
	Stage        Stage
	Path         string
}

// Reporter consumes progress events. Implementations must not block the
// pipeline; events may be dropped when the consumer falls behind.
type Reporter interface {
	Report(Progress)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

// ChanReporter buffers progress events on a channel, dropping events
// when the buffer is full so producers never block.
type ChanReporter struct {
	C chan Progress
}

func NewChanReporter(buffer int) *ChanReporter {
	return &ChanReporter{C: make(chan Progress, buffer)}
}

func (r *ChanReporter) Report(p Progress) {
	select {
	case r.C <- p:
	default:
	}
}

// Close closes the event channel once no more events will be reported.
func (r *ChanReporter) Close() { close(r.C) }

// report is a nil-safe helper used by the pipeline stages.
func report(r Reporter, p Progress) {
	if r != nil {
		r.Report(p)
	}
}
