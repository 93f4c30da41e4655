// Package vocabulary builds, stores and loads visual-word vocabularies.
package vocabulary

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"visual-bow/internal/features"

	"github.com/klauspost/compress/zstd"
)

const formatVersion = 1

var (
	// ErrEmpty is returned when constructing a vocabulary without words.
	ErrEmpty = errors.New("vocabulary has no words")

	// ErrFormat is returned when a vocabulary artifact cannot be understood.
	ErrFormat = errors.New("invalid vocabulary artifact")
)

// Vocabulary is an ordered, immutable set of K visual words of dimension D.
// The index of a word is its visual-word id.
type Vocabulary struct {
	dim   int
	words []features.Descriptor
}

// New creates a vocabulary from centroids. The centroids are copied.
func New(words []features.Descriptor) (*Vocabulary, error) {
	if len(words) == 0 {
		return nil, ErrEmpty
	}
	dim := len(words[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimension words", ErrFormat)
	}
	v := &Vocabulary{dim: dim, words: make([]features.Descriptor, len(words))}
	for i, w := range words {
		if err := features.CheckDim("vocabulary word", dim, len(w)); err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}
		v.words[i] = append(features.Descriptor(nil), w...)
	}
	return v, nil
}

// K returns the number of visual words.
func (v *Vocabulary) K() int {
	return len(v.words)
}

// Dim returns the descriptor dimension.
func (v *Vocabulary) Dim() int {
	return v.dim
}

// Word returns visual word i. The returned slice must not be modified.
func (v *Vocabulary) Word(i int) features.Descriptor {
	return v.words[i]
}

// Words returns a copy of all visual words in id order.
func (v *Vocabulary) Words() []features.Descriptor {
	out := make([]features.Descriptor, len(v.words))
	for i, w := range v.words {
		out[i] = append(features.Descriptor(nil), w...)
	}
	return out
}

type artifact struct {
	Version int                   `json:"version"`
	Dim     int                   `json:"dim"`
	Words   []features.Descriptor `json:"words"`
}

// Save writes the vocabulary to path as zstd-compressed JSON.
func (v *Vocabulary) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary file: %w", err)
	}
	defer file.Close()

	enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(artifact{Version: formatVersion, Dim: v.dim, Words: v.words}); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush vocabulary: %w", err)
	}
	return file.Close()
}

// Load reads a vocabulary written by Save.
func Load(path string) (*Vocabulary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer dec.Close()

	var a artifact
	if err := json.NewDecoder(dec).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if a.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, a.Version)
	}

	v, err := New(a.Words)
	if err != nil {
		return nil, err
	}
	if v.dim != a.Dim {
		return nil, fmt.Errorf("%w: header dim %d, words dim %d", ErrFormat, a.Dim, v.dim)
	}
	return v, nil
}
