package knowsearch

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FORWARD INDEX MODEL: per-document term tables
// ═══════════════════════════════════════════════════════════════════════════════
// The forward model stores, for every indexed document, a pair of term tables
// (unstemmed and stemmed) each mapping a token to how many times and at which
// positions it occurred. This is the representation phrase and exact-term
// search need: "does this document contain these tokens at consecutive
// positions?" is a per-document question.
//
// The positional postings (TermInner.Positions) are backed by the skip list
// in posting.go instead of a plain slice, so phrase search's contiguity check
// is a skip-list lookup rather than a linear scan.
// ═══════════════════════════════════════════════════════════════════════════════

// TermInner is the (count, positions) pair for one term in one document:
// count equals the number of positions, and positions are strictly
// increasing.
type TermInner struct {
	Count     int
	Positions *offsetList
}

func newTermInner() *TermInner {
	return &TermInner{Positions: newOffsetList()}
}

func (ti *TermInner) add(position int) {
	ti.Positions.insert(position)
	ti.Count++
}

type termInnerWire struct {
	Count     int   `json:"count"`
	Positions []int `json:"positions"`
}

func (ti TermInner) MarshalJSON() ([]byte, error) {
	return json.Marshal(termInnerWire{Count: ti.Count, Positions: ti.Positions.offsets()})
}

func (ti *TermInner) UnmarshalJSON(data []byte) error {
	var w termInnerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ti.Count = w.Count
	ti.Positions = fromOffsets(w.Positions)
	return nil
}

// Document is one indexed file's forward-model state.
type Document struct {
	TF          map[string]*TermInner `json:"tf"`
	TFStemmed   map[string]*TermInner `json:"tf_stemmed"`
	Count       int                   `json:"count"`
	LastUpdated int64                 `json:"last_updated"`
}

// ForwardIndex is the per-document view of the corpus. It is not safe for
// concurrent use on its own; the Facade serializes access with a single
// reader/writer lock.
type ForwardIndex struct {
	documents map[string]*Document
	df        map[string]int
	dfStemmed map[string]int
}

// NewForwardIndex returns an empty forward model.
func NewForwardIndex() *ForwardIndex {
	return &ForwardIndex{
		documents: make(map[string]*Document),
		df:        make(map[string]int),
		dfStemmed: make(map[string]int),
	}
}

func fileModTimeSeconds(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().Unix(), nil
}

// AddDocument tokenizes chars and (re)inserts path's document. An add on a
// path already present first fully retracts the prior document so document
// frequency counters stay exact instead of double-counting the overwrite.
// An empty token stream leaves the index untouched.
func (idx *ForwardIndex) AddDocument(path string, chars []rune) error {
	mtime, err := fileModTimeSeconds(path)
	if err != nil {
		return err
	}

	tf := make(map[string]*TermInner)
	tfStemmed := make(map[string]*TermInner)
	count := 0

	tok := NewTokenizer(chars)
	for {
		text, position, ok := tok.Next()
		if !ok {
			break
		}
		stemmed := Stem(text)

		if entry, ok := tf[text]; ok {
			entry.add(position)
		} else {
			tf[text] = newTermInner()
			tf[text].add(position)
		}

		if entry, ok := tfStemmed[stemmed]; ok {
			entry.add(position)
		} else {
			tfStemmed[stemmed] = newTermInner()
			tfStemmed[stemmed].add(position)
		}
		count++
	}

	if count == 0 {
		return nil
	}

	if _, exists := idx.documents[path]; exists {
		idx.RemoveDocument(path)
	}

	for t := range tf {
		idx.df[t]++
	}
	for t := range tfStemmed {
		idx.dfStemmed[t]++
	}

	idx.documents[path] = &Document{TF: tf, TFStemmed: tfStemmed, Count: count, LastUpdated: mtime}
	return nil
}

// RemoveDocument retracts path entirely: its Document record and every
// document-frequency contribution it made. A document frequency counter
// going negative means some earlier add/remove pair didn't balance; that is
// a programming bug, not a recoverable runtime condition, so it panics
// rather than clamping silently.
func (idx *ForwardIndex) RemoveDocument(path string) {
	d, ok := idx.documents[path]
	if !ok {
		return
	}

	for t := range d.TF {
		decrementDF(idx.df, t)
	}
	for t := range d.TFStemmed {
		decrementDF(idx.dfStemmed, t)
	}
	delete(idx.documents, path)
}

func decrementDF(df map[string]int, term string) {
	n, ok := df[term]
	if !ok || n <= 0 {
		panic(fmt.Sprintf("knowsearch: document frequency underflow for term %q", term))
	}
	if n == 1 {
		delete(df, term)
	} else {
		df[term] = n - 1
	}
}

// NeedsReindex reports whether path is unknown, or its on-disk mtime is
// strictly newer than the stored last_updated.
func (idx *ForwardIndex) NeedsReindex(path string) (bool, error) {
	d, ok := idx.documents[path]
	if !ok {
		return true, nil
	}
	mtime, err := fileModTimeSeconds(path)
	if err != nil {
		return false, err
	}
	return mtime > d.LastUpdated, nil
}

// ScoredPath is one ranked search result.
type ScoredPath struct {
	Path string
	Rank float64
}

func sortByRankDesc(results []ScoredPath) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rank > results[j].Rank
	})
}

func idf(term string, n int, df map[string]int) float64 {
	f := df[term]
	if f == 0 {
		f = 1
	}
	return math.Log10(float64(n) / float64(f))
}

func tfFromTable(table map[string]*TermInner, term string, docCount int) float64 {
	entry, ok := table[term]
	if !ok {
		return 0
	}
	return float64(entry.Count) / float64(docCount)
}

// SearchSimple stems the query and ranks every stored document by
// sum of tf_stemmed(d,t) * idf_stemmed(t) over the query's stemmed terms.
func (idx *ForwardIndex) SearchSimple(query []rune) []ScoredPath {
	qt := TokenizeAll(query, true)
	n := len(idx.documents)

	results := make([]ScoredPath, 0)
	for path, d := range idx.documents {
		var rank float64
		for _, t := range qt {
			rank += tfFromTable(d.TFStemmed, t.Text, d.Count) * idf(t.Text, n, idx.dfStemmed)
		}
		if rank > 0 {
			results = append(results, ScoredPath{Path: path, Rank: rank})
		}
	}
	sortByRankDesc(results)
	return results
}

func (idx *ForwardIndex) docsWithAllTerms(terms []string) []string {
	var out []string
	for path, d := range idx.documents {
		hasAll := true
		for _, t := range terms {
			if _, ok := d.TF[t]; !ok {
				hasAll = false
				break
			}
		}
		if hasAll {
			out = append(out, path)
		}
	}
	return out
}

// SearchSingularExact tokenizes without stemming and requires every query
// token to appear in a document's unstemmed tf table (AND semantics),
// ranking with the unstemmed tf/df tables. The bool result is always true:
// the forward model always supports this mode, matching the Backend
// interface's signature for models that don't.
func (idx *ForwardIndex) SearchSingularExact(query []rune) ([]ScoredPath, bool) {
	qt := TokenizeAll(query, false)
	terms := make([]string, len(qt))
	for i, t := range qt {
		terms[i] = t.Text
	}

	paths := idx.docsWithAllTerms(terms)
	results := make([]ScoredPath, 0, len(paths))
	for _, path := range paths {
		d := idx.documents[path]
		var rank float64
		for _, t := range terms {
			rank += tfFromTable(d.TF, t, d.Count) * idf(t, len(idx.documents), idx.df)
		}
		results = append(results, ScoredPath{Path: path, Rank: rank})
	}
	sortByRankDesc(results)
	return results, true
}

// SearchPhrase tokenizes without stemming; a single-token query delegates to
// SearchSingularExact. Otherwise it keeps documents containing every query
// token, then for each recorded starting position of the first token checks
// sequential contiguity: token i of the phrase must sit at position
// start+i.
func (idx *ForwardIndex) SearchPhrase(query []rune) ([]ScoredPath, bool) {
	qt := TokenizeAll(query, false)
	if len(qt) == 0 {
		return nil, true
	}
	if len(qt) == 1 {
		return idx.SearchSingularExact(query)
	}

	terms := make([]string, len(qt))
	for i, t := range qt {
		terms[i] = t.Text
	}

	paths := idx.docsWithAllTerms(terms)
	results := make([]ScoredPath, 0, len(paths))
	for _, path := range paths {
		d := idx.documents[path]
		first := d.TF[terms[0]]
		for _, start := range first.Positions.offsets() {
			if phraseMatchesAt(d, terms, start) {
				results = append(results, ScoredPath{Path: path, Rank: 1.0})
				break
			}
		}
	}
	sortByRankDesc(results)
	return results, true
}

// phraseMatchesAt checks whether terms[1:] occur at start+1, start+2, ...
// in doc.TF, i.e. immediately and contiguously after terms[0] at start.
func phraseMatchesAt(doc *Document, terms []string, start int) bool {
	for i := 1; i < len(terms); i++ {
		entry, ok := doc.TF[terms[i]]
		if !ok || !entry.Positions.contains(start+i) {
			return false
		}
	}
	return true
}

// GetDocuments returns a snapshot of the indexed documents, keyed by path.
func (idx *ForwardIndex) GetDocuments() map[string]*Document {
	out := make(map[string]*Document, len(idx.documents))
	for k, v := range idx.documents {
		out[k] = v
	}
	return out
}

// DeleteRemovedFiles removes every document whose backing file is no longer
// present on disk. Synchronous, read-then-write; the Facade is responsible
// for exclusive access around the call.
func (idx *ForwardIndex) DeleteRemovedFiles() {
	var gone []string
	for path := range idx.documents {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			gone = append(gone, path)
		}
	}
	for _, path := range gone {
		idx.RemoveDocument(path)
	}
}

// Reset discards all indexed state.
func (idx *ForwardIndex) Reset() {
	idx.documents = make(map[string]*Document)
	idx.df = make(map[string]int)
	idx.dfStemmed = make(map[string]int)
}

// AddDocumentBatched adds every (path, chars) pair in batch under a single
// logical call.
func (idx *ForwardIndex) AddDocumentBatched(batch []PathContent) error {
	for _, pc := range batch {
		if err := idx.AddDocument(pc.Path, pc.Chars); err != nil {
			return err
		}
	}
	return nil
}

// PathContent is a parsed file awaiting insertion into the active index.
type PathContent struct {
	Path  string
	Chars []rune
}
