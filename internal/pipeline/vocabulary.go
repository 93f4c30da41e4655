package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"visual-bow/internal/corpus"
	"visual-bow/internal/features"
	imgfile "visual-bow/internal/image"
	"visual-bow/internal/logging"
	"visual-bow/internal/vocabulary"
)

// BuildVocabulary extracts descriptors from every image directly inside dir
// and clusters them into VocabularySize visual words. Whole images are
// described; sectors only matter once a vocabulary exists.
func (p *Pipeline) BuildVocabulary(ctx context.Context, dir string, clusterer vocabulary.Clusterer) (*vocabulary.Vocabulary, error) {
	log := logging.Component(p.log, "vocabulary")

	items, err := corpus.ScanFlat(dir, p.cfg.Matcher())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if len(items) == 0 {
		exts := strings.Join(p.cfg.Extensions, "/")
		log.Warn().Str("dir", dir).Msgf("%s contains no %s images", dir, exts)
		return nil, fmt.Errorf("%w: %s contains no %s files", ErrNoImages, dir, exts)
	}
	log.Info().Str("dir", dir).Int("images", len(items)).Str("extractor", p.extractor.Name()).Msg("extracting descriptors")

	descs := make([][]features.Descriptor, len(items))
	errs := make([]error, len(items))
	err = p.forEach(ctx, len(items), func(i int) {
		descs[i], errs[i] = p.describe(items[i])
	})
	if err != nil {
		return nil, err
	}

	b := vocabulary.NewBuilder(p.cfg.VocabularySize, clusterer, log)
	for i, it := range items {
		p.metrics.image("vocabulary", errs[i])
		if errs[i] != nil {
			logSkip(log, it, errs[i])
			continue
		}
		p.metrics.descriptors("vocabulary", len(descs[i]))
		if err := b.Add(it.Path, descs[i]); err != nil {
			if errors.Is(err, features.ErrDimensionMismatch) {
				return nil, fmt.Errorf("%w: %w", ErrDataConsistency, err)
			}
			return nil, err
		}
		descs[i] = nil
	}

	vocab, err := b.Build()
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("words", vocab.K()).
		Int("dim", vocab.Dim()).
		Int("images", b.Images()).
		Int("skipped", b.Skipped()).
		Msg("vocabulary built")
	return vocab, nil
}

func (p *Pipeline) describe(it corpus.Item) ([]features.Descriptor, error) {
	pic, err := imgfile.LoadWithin(it.Path, p.cfg.MaxImageSide)
	if err != nil {
		return nil, &ImageError{Key: it.Key, Path: it.Path, Stage: StageLoad, Err: err}
	}
	d, err := p.extractor.Extract(pic.Image)
	if err != nil {
		return nil, &ImageError{Key: it.Key, Path: it.Path, Stage: StageExtract, Err: err}
	}
	return d, nil
}
