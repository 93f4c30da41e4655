package vocabulary

import (
	"errors"
	"fmt"

	"visual-bow/internal/features"

	"github.com/rs/zerolog"
)

var (
	// ErrEmptyCorpus is returned by Build when no descriptors were pooled.
	ErrEmptyCorpus = errors.New("no descriptors in corpus")

	// ErrTooFewDescriptors is returned by Build when the pool holds fewer
	// descriptors than requested words.
	ErrTooFewDescriptors = errors.New("fewer descriptors than visual words")
)

// Clusterer partitions points into k clusters and returns the k centroids
// in a stable order.
type Clusterer interface {
	Cluster(points []features.Descriptor, k int) ([]features.Descriptor, error)
}

// Builder pools descriptors from every training image and clusters them into
// a fixed-size vocabulary.
type Builder struct {
	k         int
	clusterer Clusterer
	log       zerolog.Logger

	dim     int
	pool    []features.Descriptor
	images  int
	skipped int
}

// NewBuilder creates a builder for a k-word vocabulary.
func NewBuilder(k int, clusterer Clusterer, log zerolog.Logger) *Builder {
	return &Builder{k: k, clusterer: clusterer, log: log}
}

// Add pools the descriptors of one image. source identifies the image in
// logs. Images without descriptors are skipped with a warning.
func (b *Builder) Add(source string, descs []features.Descriptor) error {
	if len(descs) == 0 {
		b.skipped++
		b.log.Warn().Str("image", source).Msg("no descriptors, skipping image")
		return nil
	}
	if b.dim == 0 {
		b.dim = len(descs[0])
	}
	for i, d := range descs {
		if err := features.CheckDim("descriptor", b.dim, len(d)); err != nil {
			return fmt.Errorf("%s descriptor %d: %w", source, i, err)
		}
	}
	b.pool = append(b.pool, descs...)
	b.images++
	return nil
}

// Images returns the number of images that contributed descriptors.
func (b *Builder) Images() int { return b.images }

// Skipped returns the number of images skipped for having no descriptors.
func (b *Builder) Skipped() int { return b.skipped }

// Pooled returns the number of pooled descriptors.
func (b *Builder) Pooled() int { return len(b.pool) }

// Build clusters the pool into a vocabulary.
func (b *Builder) Build() (*Vocabulary, error) {
	if len(b.pool) == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(b.pool) < b.k {
		return nil, fmt.Errorf("%w: %d descriptors, %d words", ErrTooFewDescriptors, len(b.pool), b.k)
	}

	b.log.Info().
		Int("descriptors", len(b.pool)).
		Int("images", b.images).
		Int("words", b.k).
		Msg("clustering descriptors")

	centroids, err := b.clusterer.Cluster(b.pool, b.k)
	if err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}
	if len(centroids) != b.k {
		return nil, fmt.Errorf("clustering returned %d centroids, want %d", len(centroids), b.k)
	}
	return New(centroids)
}
