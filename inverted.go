package knowsearch

import (
	"math"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INVERTED INDEX MODEL: per-term posting lists
// ═══════════════════════════════════════════════════════════════════════════════
// termFrequency maps a stemmed term to every path that produced it, together
// with that path's normalized frequency. This is the representation ranked
// retrieval over many documents wants: "which documents contain t, and how
// strongly" is a per-term question, the opposite of the forward model.
//
// A roaring.Bitmap mirrors each term's posting map, giving O(1) cardinality
// and membership checks instead of scanning the map. The bitmap needs a
// document ID rather than a path, so paths are interned to uint32 IDs.
// Ranking is a plain tf_norm times idf sum, not BM25.
// ═══════════════════════════════════════════════════════════════════════════════

// DocumentMeta is the inverted model's per-path record.
type DocumentMeta struct {
	Path        string `json:"path"`
	LastUpdated int64  `json:"last_updated"`
}

// InvertedIndex is the per-term view of the corpus. Not safe for concurrent
// use on its own; the Facade serializes access.
type InvertedIndex struct {
	termFrequency map[string]map[string]float64
	documentsMeta map[string]DocumentMeta

	// docBitmaps mirrors termFrequency for O(1) cardinality/membership
	// checks, keyed by the same term. pathIDs/idPaths intern paths to the
	// uint32 IDs roaring.Bitmap requires.
	docBitmaps map[string]*roaring.Bitmap
	pathIDs    map[string]uint32
	idPaths    map[uint32]string
	nextID     uint32
}

// NewInvertedIndex returns an empty inverted model.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		termFrequency: make(map[string]map[string]float64),
		documentsMeta: make(map[string]DocumentMeta),
		docBitmaps:    make(map[string]*roaring.Bitmap),
		pathIDs:       make(map[string]uint32),
		idPaths:       make(map[uint32]string),
	}
}

func (idx *InvertedIndex) internPath(path string) uint32 {
	if id, ok := idx.pathIDs[path]; ok {
		return id
	}
	id := idx.nextID
	idx.nextID++
	idx.pathIDs[path] = id
	idx.idPaths[id] = path
	return id
}

// Count returns the number of indexed documents.
func (idx *InvertedIndex) Count() int {
	return len(idx.documentsMeta)
}

// AddDocument stems every token in chars, builds a local occurrence count
// per stemmed term, normalizes by total token count, and stores the result.
// A path already present is first fully retracted, including removing
// every posting it contributed, so an overwrite never leaves stale postings
// behind.
func (idx *InvertedIndex) AddDocument(path string, chars []rune) error {
	mtime, err := fileModTimeSeconds(path)
	if err != nil {
		return err
	}

	occurrences := make(map[string]int)
	total := 0
	tok := NewStemmedTokenizer(chars)
	for {
		text, _, ok := tok.Next()
		if !ok {
			break
		}
		occurrences[text]++
		total++
	}

	if total == 0 {
		return nil
	}

	if _, exists := idx.documentsMeta[path]; exists {
		idx.RemoveDocument(path)
	}

	id := idx.internPath(path)
	for term, occ := range occurrences {
		postings, ok := idx.termFrequency[term]
		if !ok {
			postings = make(map[string]float64)
			idx.termFrequency[term] = postings
		}
		postings[path] = float64(occ) / float64(total)

		bm, ok := idx.docBitmaps[term]
		if !ok {
			bm = roaring.New()
			idx.docBitmaps[term] = bm
		}
		bm.Add(id)
	}

	idx.documentsMeta[path] = DocumentMeta{Path: path, LastUpdated: mtime}
	return nil
}

// RemoveDocument drops path's metadata and every posting referencing it.
// Empty posting lists (and their bitmaps) are pruned rather than retained.
func (idx *InvertedIndex) RemoveDocument(path string) {
	if _, ok := idx.documentsMeta[path]; !ok {
		return
	}

	id, hasID := idx.pathIDs[path]
	for term, postings := range idx.termFrequency {
		if _, ok := postings[path]; !ok {
			continue
		}
		delete(postings, path)
		if bm, ok := idx.docBitmaps[term]; ok && hasID {
			bm.Remove(id)
			if bm.IsEmpty() {
				delete(idx.docBitmaps, term)
			}
		}
		if len(postings) == 0 {
			delete(idx.termFrequency, term)
		}
	}

	delete(idx.documentsMeta, path)
}

// NeedsReindex mirrors the forward model's reindex threshold.
func (idx *InvertedIndex) NeedsReindex(path string) (bool, error) {
	meta, ok := idx.documentsMeta[path]
	if !ok {
		return true, nil
	}
	mtime, err := fileModTimeSeconds(path)
	if err != nil {
		return false, err
	}
	return mtime > meta.LastUpdated, nil
}

// SearchSimple stems the query and ranks every posted document by
// sum of tf_norm(t,d) * log10(N / |postings(t)|) over the query's stemmed
// terms. The bitmap mirror gives |postings(t)| as a cardinality call rather
// than a map-length scan.
func (idx *InvertedIndex) SearchSimple(query []rune) []ScoredPath {
	qt := TokenizeAll(query, true)
	n := idx.Count()

	ranks := make(map[string]float64)
	for _, t := range qt {
		postings, ok := idx.termFrequency[t.Text]
		if !ok {
			continue
		}
		df := idx.postingCardinality(t.Text, len(postings))
		weight := math.Log10(float64(n) / float64(df))
		for path, tfNorm := range postings {
			ranks[path] += tfNorm * weight
		}
	}

	results := make([]ScoredPath, 0, len(ranks))
	for path, rank := range ranks {
		if rank > 0 {
			results = append(results, ScoredPath{Path: path, Rank: rank})
		}
	}
	sortByRankDesc(results)
	return results
}

func (idx *InvertedIndex) postingCardinality(term string, mapLen int) int {
	if bm, ok := idx.docBitmaps[term]; ok {
		return int(bm.GetCardinality())
	}
	return mapLen
}

// SearchSingularExact is not supported by the inverted model; callers (the
// Facade) fall back to SearchSimple.
func (idx *InvertedIndex) SearchSingularExact(query []rune) ([]ScoredPath, bool) {
	return nil, false
}

// SearchPhrase is not supported by the inverted model either.
func (idx *InvertedIndex) SearchPhrase(query []rune) ([]ScoredPath, bool) {
	return nil, false
}

// Paths returns every indexed path in sorted order. GetDocuments is
// meaningful only on the forward backend; the inverted model exposes this
// instead for removal sweeps and tests.
func (idx *InvertedIndex) Paths() []string {
	paths := make([]string, 0, len(idx.documentsMeta))
	for p := range idx.documentsMeta {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DeleteRemovedFiles removes every document whose backing file is gone.
func (idx *InvertedIndex) DeleteRemovedFiles() {
	var gone []string
	for path := range idx.documentsMeta {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			gone = append(gone, path)
		}
	}
	for _, path := range gone {
		idx.RemoveDocument(path)
	}
}

// Reset discards all indexed state.
func (idx *InvertedIndex) Reset() {
	idx.termFrequency = make(map[string]map[string]float64)
	idx.documentsMeta = make(map[string]DocumentMeta)
	idx.docBitmaps = make(map[string]*roaring.Bitmap)
	idx.pathIDs = make(map[string]uint32)
	idx.idPaths = make(map[uint32]string)
	idx.nextID = 0
}

// AddDocumentBatched adds every (path, chars) pair under one logical call.
func (idx *InvertedIndex) AddDocumentBatched(batch []PathContent) error {
	for _, pc := range batch {
		if err := idx.AddDocument(pc.Path, pc.Chars); err != nil {
			return err
		}
	}
	return nil
}
