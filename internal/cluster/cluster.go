// Package cluster groups a library into informal "sounds like" clusters
// using the Louvain community-detection algorithm, adapted from the
// teacher's CommunityDetector (analysis/communities.go). This is an
// additive, explanatory feature (SPEC_FULL §9 [EXPANDED]): it never
// participates in ingest or query, and a caller that never invokes
// ClusterLibrary sees no change in core similarity behavior.
package cluster

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/soundprint/soundprint/internal/cache"
	"github.com/soundprint/soundprint/internal/fingerprint"
	"github.com/soundprint/soundprint/internal/scorer"
	"github.com/soundprint/soundprint/internal/store"
)

// defaultCacheTTL bounds how long a pairwise Overall score survives in the
// optional cache before a cluster run recomputes it from scratch, used when
// the caller doesn't configure one explicitly via WithCacheTTL.
const defaultCacheTTL = time.Hour

// Info describes one detected cluster.
type Info struct {
	ID          int
	Name        string
	TrackCount  int
	TopFeatures []string
	TrackIDs    []string
}

// Engine runs Louvain clustering over a library's pairwise similarity
// graph.
type Engine struct {
	scorer        *scorer.Scorer
	edgeThreshold float64
	maxIterations int
	cache         cache.ScoreCache
	cacheTTL      time.Duration
}

// New builds an Engine. edgeThreshold is the minimum Overall similarity
// two tracks must share to be connected in the graph (the teacher's
// MinSimilarityThreshold, generalized to a parameter).
func New(s *scorer.Scorer, edgeThreshold float64) *Engine {
	if edgeThreshold <= 0 {
		edgeThreshold = 0.3
	}
	return &Engine{scorer: s, edgeThreshold: edgeThreshold, maxIterations: 10, cacheTTL: defaultCacheTTL}
}

// WithCache attaches an optional score cache: clustering a large library
// recomputes the same pairwise Overall score across repeated runs, which
// is exactly the repeated-lookup pattern internal/cache exists for. A nil
// cache (the default) just means every run recomputes from scratch.
func (e *Engine) WithCache(c cache.ScoreCache) *Engine {
	e.cache = c
	return e
}

// WithCacheTTL overrides how long a cached pairwise Overall score survives
// (config.CacheConfig.TTL). A non-positive ttl leaves defaultCacheTTL in
// place rather than caching forever by accident.
func (e *Engine) WithCacheTTL(ttl time.Duration) *Engine {
	if ttl > 0 {
		e.cacheTTL = ttl
	}
	return e
}

func (e *Engine) pairOverall(ctx context.Context, a, b store.Track) float64 {
	if e.cache == nil {
		return e.scorer.Score(a.Fingerprint, b.Fingerprint).Overall
	}

	if raw, ok := e.cache.Get(ctx, a.ID, b.ID); ok {
		var cached struct {
			Overall float64 `json:"overall"`
		}
		if err := cache.Decode(raw, &cached); err == nil {
			return cached.Overall
		}
	}

	bd := e.scorer.Score(a.Fingerprint, b.Fingerprint)
	if encoded, err := cache.Encode(struct {
		Overall float64 `json:"overall"`
	}{Overall: bd.Overall}); err == nil {
		e.cache.Set(ctx, a.ID, b.ID, encoded, e.cacheTTL)
	}
	return bd.Overall
}

type edge struct {
	target string
	weight float64
}

// ClusterLibrary computes similarity edges between every pair of tracks,
// then runs Louvain local-moving to assign each track to a cluster.
func (e *Engine) ClusterLibrary(tracks []store.Track) []Info {
	return e.ClusterLibraryContext(context.Background(), tracks)
}

// ClusterLibraryContext is ClusterLibrary with an explicit context, used
// when the attached cache's Get/Set calls should respect cancellation
// (e.g. a Redis-backed cache during a CLI-invoked run).
func (e *Engine) ClusterLibraryContext(ctx context.Context, tracks []store.Track) []Info {
	if len(tracks) < 2 {
		return nil
	}

	byID := make(map[string]store.Track, len(tracks))
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	adjacency := e.buildAdjacency(ctx, tracks)

	community := make(map[string]int)
	for i, id := range ids {
		community[id] = i
	}

	var totalWeight float64
	for _, edges := range adjacency {
		for _, ed := range edges {
			totalWeight += ed.weight
		}
	}
	totalWeight /= 2

	improved := true
	for iteration := 0; improved && iteration < e.maxIterations; iteration++ {
		improved = false
		for _, id := range ids {
			current := community[id]
			best := current
			bestGain := 0.0

			degree := nodeDegree(id, adjacency)
			neighbors := make(map[int]bool)
			for _, ed := range adjacency[id] {
				neighbors[community[ed.target]] = true
			}

			for comm := range neighbors {
				if comm == current {
					continue
				}
				gain := modularityGain(id, comm, community, adjacency, degree, totalWeight)
				if gain > bestGain {
					bestGain = gain
					best = comm
				}
			}

			if best != current {
				community[id] = best
				improved = true
			}
		}
	}

	renumbered := renumber(community)
	return buildInfo(ids, renumbered, byID)
}

// buildAdjacency computes the similarity graph's edges: every pair whose
// Overall score clears edgeThreshold.
func (e *Engine) buildAdjacency(ctx context.Context, tracks []store.Track) map[string][]edge {
	adjacency := make(map[string][]edge, len(tracks))
	for i := 0; i < len(tracks); i++ {
		for j := i + 1; j < len(tracks); j++ {
			overall := e.pairOverall(ctx, tracks[i], tracks[j])
			if overall < e.edgeThreshold {
				continue
			}
			adjacency[tracks[i].ID] = append(adjacency[tracks[i].ID], edge{target: tracks[j].ID, weight: overall})
			adjacency[tracks[j].ID] = append(adjacency[tracks[j].ID], edge{target: tracks[i].ID, weight: overall})
		}
	}
	return adjacency
}

func nodeDegree(id string, adjacency map[string][]edge) float64 {
	var degree float64
	for _, ed := range adjacency[id] {
		degree += ed.weight
	}
	return degree
}

func modularityGain(id string, targetComm int, community map[string]int, adjacency map[string][]edge, nodeDeg, totalWeight float64) float64 {
	if totalWeight == 0 {
		return 0
	}
	var sumIn float64
	for _, ed := range adjacency[id] {
		if community[ed.target] == targetComm {
			sumIn += ed.weight
		}
	}
	var commDegree float64
	for node, comm := range community {
		if comm == targetComm {
			commDegree += nodeDegree(node, adjacency)
		}
	}
	m2 := 2 * totalWeight
	return sumIn/totalWeight - (commDegree*nodeDeg)/(m2*totalWeight)
}

func renumber(community map[string]int) map[string]int {
	seen := make(map[int]int)
	next := 0
	out := make(map[string]int, len(community))
	for id, comm := range community {
		n, ok := seen[comm]
		if !ok {
			n = next
			seen[comm] = n
			next++
		}
		out[id] = n
	}
	return out
}

func buildInfo(ids []string, community map[string]int, byID map[string]store.Track) []Info {
	grouped := make(map[int][]string)
	for _, id := range ids {
		grouped[community[id]] = append(grouped[community[id]], id)
	}

	infos := make([]Info, 0, len(grouped))
	for commID, members := range grouped {
		avg := averageFingerprint(members, byID)
		infos = append(infos, Info{
			ID:          commID,
			Name:        describeCluster(avg, len(members)),
			TrackCount:  len(members),
			TopFeatures: topFeatures(avg),
			TrackIDs:    members,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].TrackCount > infos[j].TrackCount })
	return infos
}

func averageFingerprint(ids []string, byID map[string]store.Track) fingerprint.Fingerprint {
	var avg fingerprint.Fingerprint
	count := 0.0
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			continue
		}
		f := t.Fingerprint
		count++
		avg.Tempo += f.Tempo
		avg.RMSEnergyMean += f.RMSEnergyMean
		avg.DynamicRange += f.DynamicRange
		avg.Extras.RhythmComplexity += f.Extras.RhythmComplexity
		avg.Extras.Instruments.BrassLike += f.Extras.Instruments.BrassLike
		avg.Extras.Instruments.StringLike += f.Extras.Instruments.StringLike
		avg.Extras.Instruments.Percussive += f.Extras.Instruments.Percussive
		avg.Extras.Instruments.SynthPad += f.Extras.Instruments.SynthPad
		avg.Extras.Instruments.VocalPresence += f.Extras.Instruments.VocalPresence
	}
	if count == 0 {
		return avg
	}
	avg.Tempo /= count
	avg.RMSEnergyMean /= count
	avg.DynamicRange /= count
	avg.Extras.RhythmComplexity /= count
	avg.Extras.Instruments.BrassLike /= count
	avg.Extras.Instruments.StringLike /= count
	avg.Extras.Instruments.Percussive /= count
	avg.Extras.Instruments.SynthPad /= count
	avg.Extras.Instruments.VocalPresence /= count
	return avg
}

func describeCluster(f fingerprint.Fingerprint, trackCount int) string {
	var parts []string

	if f.Tempo > 140 {
		parts = append(parts, "high-tempo")
	} else if f.Tempo > 0 && f.Tempo < 80 {
		parts = append(parts, "slow")
	}

	if f.RMSEnergyMean > 0.5 {
		parts = append(parts, "energetic")
	} else if f.RMSEnergyMean < 0.2 {
		parts = append(parts, "mellow")
	}

	dominant := ""
	threshold := float64(0.3)
	instr := f.Extras.Instruments
	if instr.BrassLike > threshold {
		dominant, threshold = "brass", instr.BrassLike
	}
	if instr.StringLike > threshold {
		dominant, threshold = "strings", instr.StringLike
	}
	if instr.Percussive > threshold {
		dominant, threshold = "percussion", instr.Percussive
	}
	if instr.SynthPad > threshold {
		dominant, threshold = "synth", instr.SynthPad
	}
	if instr.VocalPresence > threshold {
		dominant = "vocal"
	}
	if dominant != "" {
		parts = append(parts, dominant)
	}

	if len(parts) == 0 {
		return fmt.Sprintf("cluster of %d", trackCount)
	}

	name := parts[0]
	for _, p := range parts[1:] {
		name += " " + p
	}
	return name
}

func topFeatures(f fingerprint.Fingerprint) []string {
	type scored struct {
		name  string
		value float64
	}
	candidates := []scored{
		{"high-tempo", f.Tempo / 200},
		{"low-tempo", 1 - f.Tempo/200},
		{"brass", f.Extras.Instruments.BrassLike},
		{"strings", f.Extras.Instruments.StringLike},
		{"percussion", f.Extras.Instruments.Percussive},
		{"synth", f.Extras.Instruments.SynthPad},
		{"vocals", f.Extras.Instruments.VocalPresence},
		{"dynamic", math.Min(f.DynamicRange, 1)},
		{"complex-rhythm", f.Extras.RhythmComplexity},
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].value > candidates[j].value })

	var out []string
	for i := 0; i < 3 && i < len(candidates); i++ {
		if candidates[i].value > 0.3 {
			out = append(out, candidates[i].name)
		}
	}
	return out
}
