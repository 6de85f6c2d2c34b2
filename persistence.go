package knowsearch

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring"
	"github.com/klauspost/compress/zstd"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PERSISTENCE: forward → JSON, inverted → length-prefixed binary + zstd
// ═══════════════════════════════════════════════════════════════════════════════
// The forward model is dumped with encoding/json: a human-readable structured
// text dump. The inverted model is dumped with a length-prefixed binary
// encoder (writeString/writeInt64/writeUint32, mirrored by matching readers),
// then compressed with github.com/klauspost/compress/zstd before the final
// file write, and decompressed with the matching reader on load. Neither
// format persists the active in-memory persisted-path field; the Facade
// rebinds it on FromDisk.
// ═══════════════════════════════════════════════════════════════════════════════

// ErrNoFilenameComponent is returned for a directory path with no trailing
// filename component, since no artifact name can be derived from it.
var ErrNoFilenameComponent = errors.New("knowsearch: directory path has no filename component")

// IndexFilename derives the index artifact name for a root directory: the
// directory's base name plus ".index" and a format suffix, ".json" for
// forward, ".bin" for inverted.
func IndexFilename(rootDir string, kind BackendKind) (string, error) {
	name := filepath.Base(filepath.Clean(rootDir))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", ErrNoFilenameComponent
	}
	if kind == Inverted {
		return name + ".index.bin", nil
	}
	return name + ".index.json", nil
}

// ─── forward model: JSON ──────────────────────────────────────────────────

type forwardWire struct {
	Documents map[string]*Document `json:"documents"`
	DF        map[string]int       `json:"df"`
	DFStemmed map[string]int       `json:"df_stemmed"`
}

func saveForward(idx *ForwardIndex, path string) error {
	wire := forwardWire{Documents: idx.documents, DF: idx.df, DFStemmed: idx.dfStemmed}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("knowsearch: encode forward index: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func loadForward(path string) (*ForwardIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wire forwardWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("knowsearch: decode forward index: %w", err)
	}

	idx := NewForwardIndex()
	if wire.Documents != nil {
		idx.documents = wire.Documents
	}
	if wire.DF != nil {
		idx.df = wire.DF
	}
	if wire.DFStemmed != nil {
		idx.dfStemmed = wire.DFStemmed
	}
	return idx, nil
}

// ─── inverted model: length-prefixed binary + zstd ────────────────────────

func writeString(buf *bytes.Buffer, s string) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(s)))
	buf.Write(length[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(length[:])
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readInt64(r *bytes.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func encodeInverted(idx *InvertedIndex) []byte {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(len(idx.documentsMeta)))
	for path, meta := range idx.documentsMeta {
		writeString(&buf, path)
		writeInt64(&buf, meta.LastUpdated)
	}

	writeUint32(&buf, uint32(len(idx.termFrequency)))
	for term, postings := range idx.termFrequency {
		writeString(&buf, term)
		writeUint32(&buf, uint32(len(postings)))
		for path, tfNorm := range postings {
			writeString(&buf, path)
			writeFloat64BE(&buf, tfNorm)
		}
	}

	return buf.Bytes()
}

func writeFloat64BE(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

func readFloat64BE(r *bytes.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[:])), nil
}

func decodeInverted(data []byte) (*InvertedIndex, error) {
	r := bytes.NewReader(data)
	idx := NewInvertedIndex()

	docCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
	}
	for i := uint32(0); i < docCount; i++ {
		path, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
		}
		lastUpdated, err := readInt64(r)
		if err != nil {
			return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
		}
		idx.documentsMeta[path] = DocumentMeta{Path: path, LastUpdated: lastUpdated}
		idx.internPath(path)
	}

	termCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
	}
	for i := uint32(0); i < termCount; i++ {
		term, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
		}
		postingCount, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
		}
		postings := make(map[string]float64, postingCount)
		for j := uint32(0); j < postingCount; j++ {
			path, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
			}
			tfNorm, err := readFloat64BE(r)
			if err != nil {
				return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
			}
			postings[path] = tfNorm
			id := idx.internPath(path)
			bm, ok := idx.docBitmaps[term]
			if !ok {
				bm = roaring.New()
				idx.docBitmaps[term] = bm
			}
			bm.Add(id)
		}
		idx.termFrequency[term] = postings
	}

	return idx, nil
}

func saveInverted(idx *InvertedIndex, path string) error {
	raw := encodeInverted(idx)

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("knowsearch: create zstd encoder: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	return os.WriteFile(path, compressed, 0o644)
}

func loadInverted(path string) (*InvertedIndex, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("knowsearch: create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("knowsearch: decode inverted index: %w", err)
	}

	return decodeInverted(raw)
}
