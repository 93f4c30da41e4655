package pipeline

import (
	"context"
	"fmt"

	"visual-bow/internal/bow"
	"visual-bow/internal/category"
	"visual-bow/internal/classifier"
	"visual-bow/internal/corpus"
	"visual-bow/internal/logging"
	"visual-bow/internal/vocabulary"
)

// TrainResult is everything produced by a training run.
type TrainResult struct {
	Registry   *category.Registry
	Classifier classifier.Classifier
	Matrix     *bow.Matrix
	Images     int
	Skipped    int
}

// BuildMatrix vectorizes the class-per-directory corpus at dir and collects
// the training matrix. Every class directory is registered, in sorted order,
// even when none of its images survive.
func (p *Pipeline) BuildMatrix(ctx context.Context, dir string, vocab *vocabulary.Vocabulary) (*bow.Matrix, *category.Registry, int, error) {
	log := logging.Component(p.log, "train")

	labeled, err := corpus.ScanLabeled(dir, p.cfg.Matcher())
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	registry := category.NewRegistry()
	for _, class := range labeled.Classes {
		id := registry.AddClass(class)
		log.Info().Str("class", class).Int("id", id).Int("images", len(labeled.ByClass(class))).Msg("training label")
	}

	outcomes, err := p.Vectorize(ctx, vocab, labeled.Items, "train")
	if err != nil {
		return nil, nil, 0, err
	}

	n, k := p.divider.N(), vocab.K()
	matrix := bow.NewMatrix(n * k)
	agg := bow.NewAggregator(n, k)
	var skipped int
	for _, o := range outcomes {
		if o.Err != nil {
			skipped++
			continue
		}
		label, err := registry.ClassNumber(o.Item.Class)
		if err != nil {
			return nil, nil, 0, err
		}
		agg.ClearCurrent()
		for _, h := range o.Sectors {
			if err := agg.MergeSector(h); err != nil {
				return nil, nil, 0, fmt.Errorf("image %d: %w", o.Item.Key, err)
			}
		}
		if err := agg.Commit(matrix, o.Item.Key, label); err != nil {
			return nil, nil, 0, fmt.Errorf("image %d: %w", o.Item.Key, err)
		}
	}
	return matrix, registry, skipped, nil
}

// Train builds the training matrix for dir and fits the configured
// classifier to it.
func (p *Pipeline) Train(ctx context.Context, dir string, vocab *vocabulary.Vocabulary) (*TrainResult, error) {
	log := logging.Component(p.log, "train")

	matrix, registry, skipped, err := p.BuildMatrix(ctx, dir, vocab)
	if err != nil {
		return nil, err
	}
	if matrix.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoTrainingData)
	}

	meta := classifier.Meta{
		InputDim:       matrix.Width(),
		Classes:        registry.Names(),
		Sectors:        p.divider.N(),
		VocabularySize: vocab.K(),
	}
	clf, err := classifier.New(p.cfg.Classifier, meta, classifier.Options{Lambda: p.cfg.RidgeLambda})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	log.Info().
		Str("classifier", clf.Kind()).
		Int("rows", matrix.Len()).
		Int("width", matrix.Width()).
		Int("classes", registry.Len()).
		Int("skipped", skipped).
		Msg("training classifier")
	if err := clf.Train(matrix.Dense(), matrix.Labels()); err != nil {
		return nil, fmt.Errorf("train %s classifier: %w", clf.Kind(), err)
	}

	return &TrainResult{
		Registry:   registry,
		Classifier: clf,
		Matrix:     matrix,
		Images:     matrix.Len(),
		Skipped:    skipped,
	}, nil
}
