package pipeline

import (
	"context"
	"fmt"
	"slices"

	"visual-bow/internal/category"
	"visual-bow/internal/classifier"
	"visual-bow/internal/corpus"
	"visual-bow/internal/evaluation"
	"visual-bow/internal/logging"
	"visual-bow/internal/vocabulary"
)

// Evaluate classifies every image of the class-per-directory corpus at dir
// and reports per-class errors, per-class AP and MAP. Class directories
// unknown to the registry are reported and skipped.
func (p *Pipeline) Evaluate(ctx context.Context, dir string, vocab *vocabulary.Vocabulary, clf classifier.Classifier, registry *category.Registry) (*evaluation.Report, error) {
	log := logging.Component(p.log, "evaluate")

	meta := clf.Meta()
	if !slices.Equal(meta.Classes, registry.Names()) {
		return nil, fmt.Errorf("%w: classifier classes %v differ from dictionary %v",
			ErrDataConsistency, meta.Classes, registry.Names())
	}
	if want := p.divider.N() * vocab.K(); meta.InputDim != want {
		log.Warn().
			Int("classifier_input", meta.InputDim).
			Int("vector_length", want).
			Int("sectors", p.divider.N()).
			Int("words", vocab.K()).
			Msg("classifier was trained with different sectors or vocabulary")
	}

	labeled, err := corpus.ScanLabeled(dir, p.cfg.Matcher())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	engine := evaluation.NewEngine()
	var classIDs []int
	var samples []evaluation.Sample
	var items []corpus.Item
	for _, class := range labeled.Classes {
		id, err := registry.ClassNumber(class)
		if err != nil {
			log.Warn().Str("class", class).Msgf("Label %s is not trained", class)
			continue
		}
		if err := engine.RegisterCategory(class); err != nil {
			return nil, err
		}
		classIDs = append(classIDs, id)
		for _, it := range labeled.ByClass(class) {
			items = append(items, it)
			samples = append(samples, evaluation.Sample{Key: it.Key, Class: class})
		}
		log.Info().Str("class", class).Int("images", len(labeled.ByClass(class))).Msg("evaluating label")
	}
	if err := engine.GenerateLabels(samples); err != nil {
		return nil, err
	}

	outcomes, err := p.Vectorize(ctx, vocab, items, "evaluate")
	if err != nil {
		return nil, err
	}

	tally := evaluation.NewTally(engine.Categories()...)
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		scores, err := clf.Score(o.Vector)
		if err != nil {
			err = &ImageError{Key: o.Item.Key, Path: o.Item.Path, Stage: StagePredict, Err: fmt.Errorf("%w: %w", ErrDataConsistency, err)}
			p.metrics.image("predict", err)
			logSkip(log, o.Item, err)
			continue
		}
		p.metrics.image("predict", nil)

		predicted, err := clf.Predict(o.Vector)
		if err != nil {
			return nil, err
		}
		trueID, _ := registry.ClassNumber(o.Item.Class)
		tally.Record(o.Item.Class, predicted == trueID)

		perCategory := make([]float64, len(classIDs))
		for c, id := range classIDs {
			perCategory[c] = scores[id]
		}
		if err := engine.RecordScores(o.Item.Key, perCategory); err != nil {
			return nil, err
		}
		if predicted != trueID {
			name, _ := registry.Name(predicted)
			log.Debug().Int("key", o.Item.Key).Str("path", o.Item.Path).
				Str("class", o.Item.Class).Str("predicted", name).Msg("wrong prediction")
		}
	}

	report, err := evaluation.NewReport(tally, engine)
	if err != nil {
		return nil, err
	}
	for _, ap := range report.AP {
		if !ap.Defined {
			log.Warn().Str("class", ap.Category).Err(evaluation.ErrNoPositives).Msg("average precision undefined")
		}
	}
	if !report.MAPDefined {
		log.Warn().Err(evaluation.ErrNoPositives).Msg("mean average precision undefined")
	}
	return report, nil
}
