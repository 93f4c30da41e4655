package bow

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"visual-bow/internal/features"

	"gonum.org/v1/gonum/mat"
)

// ErrDuplicateKey is returned when a row is added twice for one image.
var ErrDuplicateKey = errors.New("row already present for image")

// Row is one training example.
type Row struct {
	Key    int    `json:"key"`
	Vector Vector `json:"vector"`
	Label  int    `json:"label"`
}

// Matrix is the training matrix with its parallel label vector. Rows are
// keyed by image key and always read back in key order, regardless of the
// order in which they were added.
type Matrix struct {
	mu    sync.RWMutex
	width int
	rows  map[int]Row
}

// NewMatrix creates an empty matrix whose rows have the given width (N*K).
func NewMatrix(width int) *Matrix {
	return &Matrix{width: width, rows: make(map[int]Row)}
}

// Width returns the row length.
func (m *Matrix) Width() int { return m.width }

// Len returns the number of rows.
func (m *Matrix) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Add stores v as the row for key.
func (m *Matrix) Add(key int, v Vector, label int) error {
	if err := features.CheckDim("spatial vector", m.width, len(v)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[key]; ok {
		return fmt.Errorf("%w: key %d", ErrDuplicateKey, key)
	}
	m.rows[key] = Row{Key: key, Vector: append(Vector(nil), v...), Label: label}
	return nil
}

// Rows returns all rows ordered by key.
func (m *Matrix) Rows() []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Labels returns the label vector, aligned with Rows.
func (m *Matrix) Labels() []int {
	rows := m.Rows()
	labels := make([]int, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
	}
	return labels
}

// Dense returns the rows as a len x width matrix, aligned with Labels.
// An empty matrix returns nil.
func (m *Matrix) Dense() *mat.Dense {
	rows := m.Rows()
	if len(rows) == 0 {
		return nil
	}
	d := mat.NewDense(len(rows), m.width, nil)
	for i, r := range rows {
		d.SetRow(i, r.Vector)
	}
	return d
}
