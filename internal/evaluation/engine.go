package evaluation

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrLabelsNotGenerated is returned when scores are recorded or pairs
	// finalized before GenerateLabels.
	ErrLabelsNotGenerated = errors.New("labels not generated")

	// ErrLabelsAlreadyGenerated is returned on a second GenerateLabels call,
	// or when registering a category after labels exist.
	ErrLabelsAlreadyGenerated = errors.New("labels already generated")

	// ErrUnknownImage is returned when a score is recorded for a key that
	// has no generated label.
	ErrUnknownImage = errors.New("no label for image")
)

// Sample is one image of the evaluation set.
type Sample struct {
	Key   int
	Class string
}

// Ranking holds the joined (trueLabel, score) pairs of one category in
// image key order.
type Ranking struct {
	Category   string
	TrueLabels []int
	Scores     []float64
}

// Positives returns the number of positive labels.
func (r Ranking) Positives() int {
	var n int
	for _, l := range r.TrueLabels {
		if l != 0 {
			n++
		}
	}
	return n
}

// CategoryAP is the average precision of one category. Defined is false when
// the category had no positive example.
type CategoryAP struct {
	Category  string
	AP        float64
	Positives int
	Samples   int
	Defined   bool
}

// Engine collects binary labels and confidence scores per category and
// joins them on image key. It is safe for concurrent RecordScore calls.
type Engine struct {
	mu         sync.Mutex
	categories []string
	index      map[string]int
	labels     map[int][]int
	scores     map[int][]float64
	generated  bool
}

// NewEngine creates an engine with no categories.
func NewEngine() *Engine {
	return &Engine{
		index:  make(map[string]int),
		labels: make(map[int][]int),
		scores: make(map[int][]float64),
	}
}

// RegisterCategory adds name to the evaluation set. Registering a known
// name is a no-op.
func (e *Engine) RegisterCategory(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.index[name]; ok {
		return nil
	}
	if e.generated {
		return fmt.Errorf("register %q: %w", name, ErrLabelsAlreadyGenerated)
	}
	e.index[name] = len(e.categories)
	e.categories = append(e.categories, name)
	return nil
}

// Categories returns the registered categories in registration order.
func (e *Engine) Categories() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.categories...)
}

// GenerateLabels records one binary label per registered category for every
// sample. It must be called exactly once, before any score is recorded.
func (e *Engine) GenerateLabels(samples []Sample) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generated {
		return ErrLabelsAlreadyGenerated
	}
	for _, s := range samples {
		if _, dup := e.labels[s.Key]; dup {
			return fmt.Errorf("duplicate image key %d", s.Key)
		}
		row := make([]int, len(e.categories))
		if c, ok := e.index[s.Class]; ok {
			row[c] = 1
		}
		e.labels[s.Key] = row
	}
	e.generated = true
	return nil
}

// RecordScore records one confidence score for the image, applied to every
// category.
func (e *Engine) RecordScore(key int, confidence float64) error {
	e.mu.Lock()
	n := len(e.categories)
	e.mu.Unlock()
	row := make([]float64, n)
	for i := range row {
		row[i] = confidence
	}
	return e.RecordScores(key, row)
}

// RecordScores records one score per registered category, in registration
// order.
func (e *Engine) RecordScores(key int, perCategory []float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.generated {
		return ErrLabelsNotGenerated
	}
	if _, ok := e.labels[key]; !ok {
		return fmt.Errorf("%w: key %d", ErrUnknownImage, key)
	}
	if len(perCategory) != len(e.categories) {
		return fmt.Errorf("%w: %d categories, %d scores", ErrLengthMismatch, len(e.categories), len(perCategory))
	}
	e.scores[key] = append([]float64(nil), perCategory...)
	return nil
}

// FinalizeScorePairs joins labels and scores on image key and returns one
// Ranking per category, plus the number of labeled images that never got a
// score.
func (e *Engine) FinalizeScorePairs() ([]Ranking, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.generated {
		return nil, 0, ErrLabelsNotGenerated
	}

	keys := make([]int, 0, len(e.labels))
	for k := range e.labels {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	rankings := make([]Ranking, len(e.categories))
	for c, name := range e.categories {
		rankings[c].Category = name
	}
	var missing int
	for _, k := range keys {
		s, ok := e.scores[k]
		if !ok {
			missing++
			continue
		}
		l := e.labels[k]
		for c := range rankings {
			rankings[c].TrueLabels = append(rankings[c].TrueLabels, l[c])
			rankings[c].Scores = append(rankings[c].Scores, s[c])
		}
	}
	return rankings, missing, nil
}

// PerCategory computes AP for every registered category.
func (e *Engine) PerCategory() ([]CategoryAP, error) {
	rankings, _, err := e.FinalizeScorePairs()
	if err != nil {
		return nil, err
	}
	out := make([]CategoryAP, 0, len(rankings))
	for _, r := range rankings {
		res := CategoryAP{Category: r.Category, Positives: r.Positives(), Samples: len(r.Scores)}
		ap, err := AveragePrecision(r.TrueLabels, r.Scores)
		switch {
		case err == nil:
			res.AP, res.Defined = ap, true
		case !errors.Is(err, ErrNoPositives):
			return nil, fmt.Errorf("category %q: %w", r.Category, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// MeanAveragePrecision averages AP over the categories with at least one
// positive example.
func (e *Engine) MeanAveragePrecision() (float64, error) {
	per, err := e.PerCategory()
	if err != nil {
		return 0, err
	}
	return Mean(per)
}

// Mean averages the defined entries of per.
func Mean(per []CategoryAP) (float64, error) {
	var sum float64
	var n int
	for _, c := range per {
		if !c.Defined {
			continue
		}
		sum += c.AP
		n++
	}
	if n == 0 {
		return 0, ErrNoPositives
	}
	return sum / float64(n), nil
}
