package evaluation

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// ClassErrors counts wrong predictions for one true class.
type ClassErrors struct {
	Class string
	Wrong int
	Total int
}

// Tally counts prediction errors per true class. It is safe for concurrent
// use.
type Tally struct {
	mu     sync.Mutex
	order  []string
	counts map[string]*ClassErrors
}

// NewTally creates a tally that reports classes in the given order. Classes
// recorded later are appended.
func NewTally(classes ...string) *Tally {
	t := &Tally{counts: make(map[string]*ClassErrors)}
	for _, c := range classes {
		t.class(c)
	}
	return t
}

func (t *Tally) class(name string) *ClassErrors {
	ce, ok := t.counts[name]
	if !ok {
		ce = &ClassErrors{Class: name}
		t.counts[name] = ce
		t.order = append(t.order, name)
	}
	return ce
}

// Record counts one prediction for an image of class trueClass.
func (t *Tally) Record(trueClass string, correct bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ce := t.class(trueClass)
	ce.Total++
	if !correct {
		ce.Wrong++
	}
}

// Classes returns the per-class counts.
func (t *Tally) Classes() []ClassErrors {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ClassErrors, len(t.order))
	for i, name := range t.order {
		out[i] = *t.counts[name]
	}
	return out
}

// Overall returns the error and prediction counts across all classes.
func (t *Tally) Overall() (wrong, total int) {
	for _, ce := range t.Classes() {
		wrong += ce.Wrong
		total += ce.Total
	}
	return wrong, total
}

// Report is the printable outcome of an evaluation run.
type Report struct {
	Classes    []ClassErrors
	Wrong      int
	Total      int
	AP         []CategoryAP
	MAP        float64
	MAPDefined bool
	Skipped    int
}

// NewReport assembles a report from a tally and the AP engine.
func NewReport(t *Tally, e *Engine) (*Report, error) {
	per, err := e.PerCategory()
	if err != nil {
		return nil, err
	}
	_, missing, err := e.FinalizeScorePairs()
	if err != nil {
		return nil, err
	}
	r := &Report{Classes: t.Classes(), AP: per, Skipped: missing}
	r.Wrong, r.Total = t.Overall()
	if m, err := Mean(per); err == nil {
		r.MAP, r.MAPDefined = m, true
	}
	return r, nil
}

// WriteTo prints the report in human-readable form.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	for _, c := range r.Classes {
		fmt.Fprintf(cw, "Label %s results:\n%d were wrongly predicted from %d\n", c.Class, c.Wrong, c.Total)
	}
	fmt.Fprintf(cw, "Final results:\n%d were wrongly predicted from %d\n", r.Wrong, r.Total)
	if r.Skipped > 0 {
		fmt.Fprintf(cw, "%d images were skipped\n", r.Skipped)
	}
	for _, ap := range r.AP {
		if !ap.Defined {
			fmt.Fprintf(cw, "Average Precision Score for class '%s' = undefined (no positives)\n", ap.Category)
			continue
		}
		fmt.Fprintf(cw, "Average Precision Score for class '%s' = %.4f\n", ap.Category, ap.AP)
	}
	if r.MAPDefined {
		fmt.Fprintf(cw, "The Mean Average Precision (MAP) = %.4f\n", r.MAP)
	} else {
		fmt.Fprintln(cw, "The Mean Average Precision (MAP) = undefined (no positives)")
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
