// Package index implements the flat inner-product similarity index: a
// standardized, L2-normalized vector index searched by cosine similarity,
// grounded on the original's FAISS IndexFlatIP + scikit-learn StandardScaler
// pipeline (SPEC_FULL §4.4). No approximate-nearest-neighbor library exists
// anywhere in the retrieved example pack, so the search itself is a brute
// force scan over gonum matrices rather than an ANN structure; this is an
// accepted scale tradeoff (see SPEC_FULL §4.4 and DESIGN.md).
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/soundprint/soundprint/internal/errs"
	"github.com/soundprint/soundprint/internal/vectorizer"
)

// Entry is one indexed item: its identifier, its raw (pre-standardization)
// feature vector, and whatever small amount of metadata the caller wants
// echoed back in search results.
type Entry struct {
	ID     string
	Vector []float64
	Tempo  float64
	Key    string
	Energy float64
}

// Result is one ranked search hit.
type Result struct {
	ID         string
	Similarity float64
	Tempo      float64
	Key        string
	Energy     float64
	Rank       int
}

// Stats mirrors the original's get_index_stats().
type Stats struct {
	TotalItems int
	Dimensions int
	IndexType  string
}

// snapshot is the immutable, swappable state backing reads: standardizer
// parameters, the L2-normalized matrix, and the entry metadata in the same
// row order as the matrix. Rebuilds construct a new snapshot and swap it in
// atomically; readers never block on a rebuild.
type snapshot struct {
	mean    []float64
	std     []float64
	normed  *mat.Dense // rows = items, cols = vectorizer.Dimensions
	entries []Entry
}

// Index is a single-writer, many-reader standardized flat inner-product
// index. Reads (Search, Stats) never take the write lock; Add/Rebuild take
// it to mutate the pending entry list and atomically swap the snapshot
// built from it (SPEC_FULL §5 concurrency model).
type Index struct {
	mu      sync.Mutex // guards pending + rebuild-in-progress bookkeeping
	pending []Entry
	addsSinceRebuild int

	rebuildEvery int

	snap atomic.Pointer[snapshot]
}

// New constructs an empty Index. rebuildEvery is the number of Add calls
// between automatic full rebuilds (the original's "every 100 songs");
// a value <= 0 defaults to 100.
func New(rebuildEvery int) *Index {
	if rebuildEvery <= 0 {
		rebuildEvery = 100
	}
	idx := &Index{rebuildEvery: rebuildEvery}
	idx.snap.Store(&snapshot{})
	return idx
}

// Add inserts an entry into the index using the *current* standardizer
// (mean/std computed as of the last full rebuild) so the new item is
// searchable immediately, without refitting the standardizer against the
// whole corpus on every call. Every rebuildEvery adds, it instead performs
// a full Rebuild that refits the standardizer from every entry. Between
// full rebuilds the standardizer is therefore slightly stale with respect
// to items added since — an accepted drift tradeoff (DESIGN.md), bounded
// by the rebuild cadence and never affecting the raw vectors persisted to
// the metadata store.
func (idx *Index) Add(entry Entry) error {
	if len(entry.Vector) != vectorizer.Dimensions {
		return errs.New(errs.KindIndex, "index.Add",
			fmt.Errorf("vector has %d dimensions, want %d", len(entry.Vector), vectorizer.Dimensions))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.pending = append(idx.pending, entry)
	idx.addsSinceRebuild++
	full := idx.addsSinceRebuild >= idx.rebuildEvery

	if full {
		idx.addsSinceRebuild = 0
		next, err := buildSnapshot(append([]Entry(nil), idx.pending...))
		if err != nil {
			return err
		}
		idx.snap.Store(next)
		return nil
	}

	return idx.appendToSnapshotLocked(entry)
}

// appendToSnapshotLocked standardizes and normalizes entry against the
// current snapshot's mean/std (without refitting them) and appends it as a
// new row, so a single Add never pays for a full corpus rescan. The caller
// must hold idx.mu: the load-build-store sequence below is a
// read-modify-write against the shared snapshot pointer, and two Adds
// racing through it unsynchronized could each load the same snapshot and
// have one's append silently overwrite the other's on Store.
func (idx *Index) appendToSnapshotLocked(entry Entry) error {
	cur := idx.snap.Load()
	if cur == nil || len(cur.entries) < 2 {
		// Fewer than 2 existing entries: no standardizer can be fit yet
		// (a single sample's variance is definitionally zero). Rebuild the
		// snapshot straight from the raw entries instead of standardizing
		// against a degenerate mean/std, which would collapse every row to
		// the zero vector.
		var existing []Entry
		if cur != nil {
			existing = cur.entries
		}
		next, err := buildSnapshot(append(append([]Entry(nil), existing...), entry))
		if err != nil {
			return err
		}
		idx.snap.Store(next)
		return nil
	}

	row := append([]float64(nil), entry.Vector...)
	standardize(row, cur.mean, cur.std)
	l2Normalize(row)

	n, dims := cur.normed.Dims()
	grown := mat.NewDense(n+1, dims, nil)
	grown.Copy(cur.normed)
	grown.SetRow(n, row)

	next := &snapshot{
		mean:    cur.mean,
		std:     cur.std,
		normed:  grown,
		entries: append(append([]Entry(nil), cur.entries...), entry),
	}
	idx.snap.Store(next)
	return nil
}

// Rebuild forces a full standardizer refit and snapshot rebuild from
// entries, replacing whatever is currently indexed. Used both for the
// periodic automatic rebuild and for an operator-triggered full rebuild
// (e.g. after restoring entries from the metadata store).
func (idx *Index) Rebuild(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return errs.New(errs.KindTimeout, "index.Rebuild", err)
	}

	next, err := buildSnapshot(entries)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pending = append([]Entry(nil), entries...)
	idx.addsSinceRebuild = 0
	idx.snap.Store(next)
	return nil
}

func buildSnapshot(entries []Entry) (*snapshot, error) {
	if len(entries) == 0 {
		return &snapshot{}, nil
	}

	dims := vectorizer.Dimensions
	raw := mat.NewDense(len(entries), dims, nil)
	for i, e := range entries {
		if len(e.Vector) != dims {
			return nil, errs.New(errs.KindIndex, "index.buildSnapshot",
				fmt.Errorf("entry %q has %d dimensions, want %d", e.ID, len(e.Vector), dims))
		}
		raw.SetRow(i, e.Vector)
	}

	mean := make([]float64, dims)
	std := make([]float64, dims)
	if len(entries) < 2 {
		// A single sample can't support a standardizer — its per-column
		// variance is zero by definition, which would otherwise collapse
		// every dimension to 0 (the zero vector) via the constant-column
		// guard below. Pass the raw vector through unstandardized
		// (mean=0, std=1) until Rebuild has fit from >=2 samples.
		for c := range std {
			std[c] = 1.0
		}
	} else {
		for c := 0; c < dims; c++ {
			col := mat.Col(nil, c, raw)
			m, s := meanStd(col)
			mean[c] = m
			if s < 1e-10 {
				s = 1.0 // constant column: standardize to 0, never divide by ~0
			}
			std[c] = s
		}
	}

	normed := mat.NewDense(len(entries), dims, nil)
	for i := range entries {
		row := make([]float64, dims)
		mat.Row(row, i, raw)
		standardize(row, mean, std)
		l2Normalize(row)
		normed.SetRow(i, row)
	}

	return &snapshot{
		mean:    mean,
		std:     std,
		normed:  normed,
		entries: append([]Entry(nil), entries...),
	}, nil
}

// Search returns up to maxResults entries with cosine similarity >=
// threshold to query, ranked descending. It over-fetches 2x like the
// original (search k=min(maxResults*2, n)) before threshold-filtering, so
// the threshold can discard the weaker half of the raw top-k without
// starving the final list.
func (idx *Index) Search(query []float64, maxResults int, threshold float64) ([]Result, error) {
	if len(query) != vectorizer.Dimensions {
		return nil, errs.New(errs.KindIndex, "index.Search",
			fmt.Errorf("query has %d dimensions, want %d", len(query), vectorizer.Dimensions))
	}

	snap := idx.snap.Load()
	if snap == nil || len(snap.entries) == 0 {
		return nil, nil
	}

	q := append([]float64(nil), query...)
	standardize(q, snap.mean, snap.std)
	l2Normalize(q)
	qVec := mat.NewVecDense(len(q), q)

	n, _ := snap.normed.Dims()
	type scored struct {
		idx int
		sim float64
	}
	scores := make([]scored, n)
	for i := 0; i < n; i++ {
		row := snap.normed.RowView(i)
		sim := mat.Dot(row, qVec)
		scores[i] = scored{idx: i, sim: sim}
	}
	sort.Slice(scores, func(a, b int) bool { return scores[a].sim > scores[b].sim })

	k := maxResults * 2
	if k > n || k <= 0 {
		k = n
	}

	results := make([]Result, 0, maxResults)
	for i := 0; i < k && len(results) < maxResults; i++ {
		s := scores[i]
		if s.sim < threshold {
			continue
		}
		e := snap.entries[s.idx]
		results = append(results, Result{
			ID:         e.ID,
			Similarity: s.sim,
			Tempo:      e.Tempo,
			Key:        e.Key,
			Energy:     e.Energy,
			Rank:       len(results) + 1,
		})
	}
	return results, nil
}

// Stats reports the current snapshot's size and dimensionality.
func (idx *Index) Stats() Stats {
	snap := idx.snap.Load()
	indexType := "none"
	dims := 0
	if snap != nil && len(snap.entries) > 0 {
		indexType = "flat-inner-product"
		dims = vectorizer.Dimensions
	}
	total := 0
	if snap != nil {
		total = len(snap.entries)
	}
	return Stats{TotalItems: total, Dimensions: dims, IndexType: indexType}
}

func standardize(vec, mean, std []float64) {
	for i := range vec {
		vec[i] = (vec[i] - mean[i]) / std[i]
	}
}

func l2Normalize(vec []float64) {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	if norm < 1e-10 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std = math.Sqrt(sq / float64(len(values)))
	return mean, std
}
