// Package progress defines the ordered ingest/query progress events
// surfaced to callers, grounded on the original app.py's staged
// socket.io progress emission (decode -> extract -> vectorize -> persist ->
// index -> done) and the teacher's AnalysisStatus polling shape.
package progress

// Stage names an ingest pipeline step, in the fixed order a single
// Ingest call emits them.
type Stage string

const (
	StageDecode    Stage = "decode"
	StageExtract   Stage = "extract"
	StageVectorize Stage = "vectorize"
	StagePersist   Stage = "persist"
	StageIndex     Stage = "index"
	StageDone      Stage = "done"
)

// Event is one progress notification for a single track's ingest.
type Event struct {
	Path    string
	Stage   Stage
	Current int
	Total   int
	Err     error
}

// Emitter receives ordered progress Events. Implementations must not
// block the ingest pipeline; a slow consumer should buffer or drop, not
// stall extraction.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a plain function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Noop discards every event; the default when a caller doesn't want
// progress reporting.
var Noop Emitter = EmitterFunc(func(Event) {})
