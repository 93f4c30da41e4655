package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"visual-bow/internal/category"
	"visual-bow/internal/classifier"
	"visual-bow/internal/config"
	"visual-bow/internal/corpus"
	"visual-bow/internal/features"
	"visual-bow/internal/logging"
	"visual-bow/internal/vocabulary"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func checks(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func stripes(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func testConfig() config.Config {
	return config.Default().
		WithSectors(4).
		WithVocabularySize(2).
		WithWorkers(3).
		WithExtractor(config.ExtractorPatch).
		WithClusterer(config.ClustererLloyd)
}

func newPipeline(t *testing.T, cfg config.Config) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	p, err := New(cfg, features.NewPatch(), logging.New(&logs, "debug", false), nil)
	require.NoError(t, err)
	return p, &logs
}

func buildVocab(t *testing.T, p *Pipeline) *vocabulary.Vocabulary {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "c.png"), checks(64, 64))
	writePNG(t, filepath.Join(dir, "s.png"), stripes(64, 64))
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	vocab, err := p.BuildVocabulary(context.Background(), dir, vocabulary.NewLloyd(1))
	require.NoError(t, err)
	return vocab
}

func trainingCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "checks", "a.png"), checks(64, 64))
	writePNG(t, filepath.Join(dir, "checks", "b.png"), checks(64, 64))
	writePNG(t, filepath.Join(dir, "stripes", "a.png"), stripes(64, 64))
	writePNG(t, filepath.Join(dir, "stripes", "b.png"), stripes(64, 64))
	return dir
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(testConfig().WithSectors(0), features.NewPatch(), logging.New(&bytes.Buffer{}, "info", false), nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = New(testConfig(), nil, logging.New(&bytes.Buffer{}, "info", false), nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBuildVocabulary(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)

	assert.Equal(t, 2, vocab.K())
	assert.Equal(t, 16, vocab.Dim())
	assert.Equal(t, 2.0, testutil.ToFloat64(p.Metrics().Images.WithLabelValues("vocabulary", StatusOK)))
	// 64x64 with 16px windows every 8px: 7x7 windows per image.
	assert.Equal(t, 98.0, testutil.ToFloat64(p.Metrics().Descriptors.WithLabelValues("vocabulary")))
}

func TestBuildVocabularyEmptyOrMissing(t *testing.T) {
	p, logs := newPipeline(t, testConfig())

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "readme.md"), "x")
	_, err := p.BuildVocabulary(context.Background(), dir, vocabulary.NewLloyd(1))
	assert.ErrorIs(t, err, ErrNoImages)
	assert.NotErrorIs(t, err, vocabulary.ErrEmptyCorpus)
	assert.Contains(t, logs.String(), "contains no .jpg/.png images")

	_, err = p.BuildVocabulary(context.Background(), filepath.Join(dir, "nope"), vocabulary.NewLloyd(1))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestBuildVocabularyNoDescriptors(t *testing.T) {
	p, logs := newPipeline(t, testConfig())

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), image.NewGray(image.Rect(0, 0, 64, 64)))
	writePNG(t, filepath.Join(dir, "b.png"), image.NewGray(image.Rect(0, 0, 64, 64)))

	_, err := p.BuildVocabulary(context.Background(), dir, vocabulary.NewLloyd(1))
	assert.ErrorIs(t, err, vocabulary.ErrEmptyCorpus)
	assert.NotErrorIs(t, err, ErrNoImages)
	assert.Contains(t, logs.String(), "no descriptors, skipping image")
}

func TestTrainEndToEnd(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)

	res, err := p.Train(context.Background(), trainingCorpus(t), vocab)
	require.NoError(t, err)

	assert.Equal(t, []string{"checks", "stripes"}, res.Registry.Names())
	assert.Equal(t, 4, res.Matrix.Len())
	assert.Equal(t, 4*2, res.Matrix.Width())
	assert.Equal(t, []int{0, 0, 1, 1}, res.Matrix.Labels())
	assert.Zero(t, res.Skipped)

	rows := res.Matrix.Rows()
	for i, r := range rows {
		assert.Equal(t, i, r.Key)
		assert.Len(t, r.Vector, 8)
		// 32x32 sectors hold 3x3 windows each.
		assert.Equal(t, 36.0, floats.Sum(r.Vector))
	}
	assert.Equal(t, rows[0].Vector, rows[1].Vector)
	assert.Equal(t, rows[2].Vector, rows[3].Vector)
	assert.NotEqual(t, rows[0].Vector, rows[2].Vector)

	for _, r := range rows {
		got, err := res.Classifier.Predict(r.Vector)
		require.NoError(t, err)
		assert.Equal(t, r.Label, got)
	}

	meta := res.Classifier.Meta()
	assert.Equal(t, 8, meta.InputDim)
	assert.Equal(t, 4, meta.Sectors)
	assert.Equal(t, 2, meta.VocabularySize)
	assert.Equal(t, 4.0, testutil.ToFloat64(p.Metrics().Images.WithLabelValues("train", StatusOK)))
}

func TestTrainIndependentOfWorkerCount(t *testing.T) {
	dir := trainingCorpus(t)

	p1, _ := newPipeline(t, testConfig().WithWorkers(1))
	vocab := buildVocab(t, p1)
	m1, _, _, err := p1.BuildMatrix(context.Background(), dir, vocab)
	require.NoError(t, err)

	p8, _ := newPipeline(t, testConfig().WithWorkers(8))
	m8, _, _, err := p8.BuildMatrix(context.Background(), dir, vocab)
	require.NoError(t, err)

	assert.Equal(t, m1.Rows(), m8.Rows())
}

func TestTrainCentroid(t *testing.T) {
	p, _ := newPipeline(t, testConfig().WithClassifier(classifier.KindCentroid))
	res, err := p.Train(context.Background(), trainingCorpus(t), buildVocab(t, p))
	require.NoError(t, err)
	assert.Equal(t, classifier.KindCentroid, res.Classifier.Kind())
}

func TestTrainNoData(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "checks", "broken.png"), "not a png")
	_, err := p.Train(context.Background(), dir, vocab)
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestEvaluate(t *testing.T) {
	p, logs := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)
	res, err := p.Train(context.Background(), trainingCorpus(t), vocab)
	require.NoError(t, err)

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "checks", "a.png"), checks(64, 48))
	writeFile(t, filepath.Join(dir, "checks", "broken.png"), "garbage")
	writePNG(t, filepath.Join(dir, "checks", "tiny.png"), checks(1, 1))
	writePNG(t, filepath.Join(dir, "stripes", "a.png"), stripes(48, 64))
	writePNG(t, filepath.Join(dir, "birds", "a.png"), stripes(64, 64))

	report, err := p.Evaluate(context.Background(), dir, vocab, res.Classifier, res.Registry)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Wrong)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.AP, 2)
	assert.Equal(t, "checks", report.AP[0].Category)
	assert.InDelta(t, 1.0, report.AP[0].AP, 1e-9)
	assert.InDelta(t, 1.0, report.AP[1].AP, 1e-9)
	assert.True(t, report.MAPDefined)
	assert.InDelta(t, 1.0, report.MAP, 1e-9)

	out := logs.String()
	assert.Contains(t, out, "Label birds is not trained")
	assert.Contains(t, out, `"stage":"load"`)
	assert.Contains(t, out, `"stage":"divide"`)

	m := p.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Images.WithLabelValues("evaluate", StatusOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Images.WithLabelValues("evaluate", StatusSkipped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Images.WithLabelValues("predict", StatusOK)))

	metricsFile := filepath.Join(t.TempDir(), "bow.prom")
	require.NoError(t, m.WriteTextfile(metricsFile))
	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bow_images_total{op="evaluate",status="skipped"} 2`)
}

func TestEvaluateRegistryMismatch(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)
	res, err := p.Train(context.Background(), trainingCorpus(t), vocab)
	require.NoError(t, err)

	other := category.NewRegistry()
	other.AddClass("stripes")
	other.AddClass("checks")
	_, err = p.Evaluate(context.Background(), trainingCorpus(t), vocab, res.Classifier, other)
	assert.ErrorIs(t, err, ErrDataConsistency)
}

func TestEvaluateSkipsMismatchedVectors(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)
	dir := trainingCorpus(t)
	res, err := p.Train(context.Background(), dir, vocab)
	require.NoError(t, err)

	// Same vocabulary, different sector count: vectors no longer fit.
	p6, logs := newPipeline(t, testConfig().WithSectors(2))
	report, err := p6.Evaluate(context.Background(), dir, vocab, res.Classifier, res.Registry)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 4, report.Skipped)
	assert.False(t, report.MAPDefined)
	assert.Contains(t, logs.String(), `"stage":"predict"`)
	assert.Equal(t, 4.0, testutil.ToFloat64(p6.Metrics().Images.WithLabelValues("predict", StatusSkipped)))
}

func TestVectorize(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)
	dir := trainingCorpus(t)
	labeled, err := corpus.ScanLabeled(dir, p.Config().Matcher())
	require.NoError(t, err)

	outcomes, err := p.Vectorize(context.Background(), vocab, labeled.Items, "test")
	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	for i, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, i, o.Item.Key)
		assert.Len(t, o.Sectors, 4)
		assert.Equal(t, 36, o.Descriptors)
		assert.Equal(t, 64, o.Width)
		assert.Equal(t, 64, o.Height)
	}
}

func TestVectorizeDownscales(t *testing.T) {
	cfg := testConfig()
	cfg.MaxImageSide = 32
	p, _ := newPipeline(t, cfg)
	vocab := buildVocab(t, p)
	labeled, err := corpus.ScanLabeled(trainingCorpus(t), p.Config().Matcher())
	require.NoError(t, err)

	outcomes, err := p.Vectorize(context.Background(), vocab, labeled.Items[:1], "test")
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, 32, outcomes[0].Width)
	assert.Equal(t, 32, outcomes[0].Height)
}

func TestVectorizeCancelled(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab := buildVocab(t, p)
	labeled, err := corpus.ScanLabeled(trainingCorpus(t), p.Config().Matcher())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Vectorize(ctx, vocab, labeled.Items, "test")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVectorizeExtractorMismatch(t *testing.T) {
	p, _ := newPipeline(t, testConfig())
	vocab, err := vocabulary.New([]features.Descriptor{{0, 0, 0}, {1, 1, 1}})
	require.NoError(t, err)

	_, err = p.Vectorize(context.Background(), vocab, []corpus.Item{{Key: 0, Path: "x.png"}}, "test")
	assert.ErrorIs(t, err, ErrDataConsistency)
}
