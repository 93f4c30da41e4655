// Package pipeline wires corpus walking, sector division, descriptor
// extraction and histogram aggregation into the vocabulary, train and
// evaluate stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"visual-bow/internal/bow"
	"visual-bow/internal/config"
	"visual-bow/internal/corpus"
	"visual-bow/internal/divider"
	"visual-bow/internal/features"
	"visual-bow/internal/histogram"
	imgfile "visual-bow/internal/image"
	"visual-bow/internal/logging"
	"visual-bow/internal/vocabulary"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pipeline holds everything shared by the stages of one run. Vocabulary,
// category registry and classifier are passed to the stage that needs them.
type Pipeline struct {
	cfg       config.Config
	divider   *divider.Even
	extractor features.Extractor
	log       zerolog.Logger
	metrics   *Metrics
}

// New validates cfg and builds a pipeline around the given extractor.
func New(cfg config.Config, extractor features.Extractor, log zerolog.Logger, metrics *Metrics) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if extractor == nil {
		return nil, configErr("no descriptor extractor")
	}
	d, err := divider.NewEven(cfg.Sectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Pipeline{cfg: cfg, divider: d, extractor: extractor, log: log, metrics: metrics}, nil
}

// Config returns the validated configuration.
func (p *Pipeline) Config() config.Config { return p.cfg }

// Metrics returns the run counters.
func (p *Pipeline) Metrics() *Metrics { return p.metrics }

// Outcome is the result of vectorizing one corpus image. Exactly one of
// Vector and Err is set.
type Outcome struct {
	Item        corpus.Item
	Width       int // decoded size after downscaling
	Height      int
	Sectors     []histogram.Histogram
	Vector      bow.Vector
	Descriptors int
	Err         error
}

// Vectorize computes the spatial BoW vector of every item on a bounded
// worker pool. Outcomes are returned in item order. Per-image failures are
// logged and reported in the Outcome; only cancellation or an extractor
// that does not fit the vocabulary fails the whole call.
func (p *Pipeline) Vectorize(ctx context.Context, vocab *vocabulary.Vocabulary, items []corpus.Item, op string) ([]Outcome, error) {
	if err := features.CheckDim("extractor descriptors", vocab.Dim(), p.extractor.Dim()); err != nil {
		return nil, fmt.Errorf("%w: %s vocabulary: %v", ErrDataConsistency, p.extractor.Name(), err)
	}
	assigner := histogram.NewAssigner(vocab)

	outcomes := make([]Outcome, len(items))
	err := p.forEach(ctx, len(items), func(i int) {
		outcomes[i] = p.vectorizeOne(assigner, items[i])
	})
	if err != nil {
		return nil, err
	}

	log := logging.Component(p.log, "corpus")
	for _, o := range outcomes {
		p.metrics.image(op, o.Err)
		p.metrics.descriptors(op, o.Descriptors)
		if o.Err != nil {
			logSkip(log, o.Item, o.Err)
			continue
		}
		log.Debug().
			Int("key", o.Item.Key).
			Str("path", o.Item.Path).
			Int("width", o.Width).
			Int("height", o.Height).
			Int("descriptors", o.Descriptors).
			Msg("vectorized")
	}
	return outcomes, nil
}

func (p *Pipeline) vectorizeOne(assigner *histogram.Assigner, it corpus.Item) Outcome {
	out := Outcome{Item: it}
	fail := func(stage string, err error) Outcome {
		if errors.Is(err, features.ErrDimensionMismatch) {
			err = fmt.Errorf("%w: %w", ErrDataConsistency, err)
		}
		out.Err = &ImageError{Key: it.Key, Path: it.Path, Stage: stage, Err: err}
		out.Sectors = nil
		return out
	}

	pic, err := imgfile.LoadWithin(it.Path, p.cfg.MaxImageSide)
	if err != nil {
		return fail(StageLoad, err)
	}
	out.Width, out.Height = pic.Width(), pic.Height()
	sectors, err := p.divider.Sectors(pic.Image)
	if err != nil {
		return fail(StageDivide, err)
	}

	out.Sectors = make([]histogram.Histogram, len(sectors))
	for s, sector := range sectors {
		descs, err := p.extractor.Extract(sector)
		if err != nil {
			return fail(StageExtract, fmt.Errorf("sector %d: %w", s+1, err))
		}
		out.Descriptors += len(descs)
		h, err := assigner.Histogram(descs)
		if err != nil {
			return fail(StageHistogram, fmt.Errorf("sector %d: %w", s+1, err))
		}
		out.Sectors[s] = h
	}

	v, err := bow.Concat(p.divider.N(), assigner.K(), out.Sectors...)
	if err != nil {
		return fail(StageConcat, err)
	}
	out.Vector = v
	return out
}

// forEach runs fn(i) for i in [0,n) with at most Workers calls in flight.
// fn must only write to state owned by index i.
func (p *Pipeline) forEach(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func logSkip(log zerolog.Logger, it corpus.Item, err error) {
	ev := log.Warn().
		Int("key", it.Key).
		Str("path", it.Path).
		Err(err)
	if it.Class != "" {
		ev = ev.Str("class", it.Class)
	}
	var ie *ImageError
	if errors.As(err, &ie) {
		ev = ev.Str("stage", ie.Stage)
	}
	ev.Msg("skipping image")
}
