package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 4, c.Sectors)
	assert.Equal(t, 100, c.VocabularySize)
	assert.Equal(t, []string{".jpg", ".png"}, c.Extensions)
	assert.True(t, c.Matcher().Match("a.PNG"))
}

func TestWithReturnsCopies(t *testing.T) {
	base := Default()
	c := base.WithSectors(6).WithVocabularySize(8).WithWorkers(1).
		WithClassifier("centroid").WithExtractor(ExtractorPatch).
		WithClusterer(ClustererLloyd).WithExtensions(".tif")

	assert.Equal(t, 4, base.Sectors)
	assert.Equal(t, 6, c.Sectors)
	assert.Equal(t, 8, c.VocabularySize)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, "centroid", c.Classifier)
	assert.Equal(t, ExtractorPatch, c.Extractor)
	assert.Equal(t, ClustererLloyd, c.Clusterer)
	assert.Equal(t, []string{".tif"}, c.Extensions)
	assert.NoError(t, c.Validate())
}

func TestExtensionsWithoutDot(t *testing.T) {
	c := Default().WithExtensions("jpg", " PNG ", ".Tiff")
	require.NoError(t, c.Validate())
	m := c.Matcher()
	assert.True(t, m.Match("a.JPG"))
	assert.True(t, m.Match("b.png"))
	assert.True(t, m.Match("c.tiff"))
	assert.False(t, m.Match("d.bmp"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"sectors", func(c *Config) { c.Sectors = 0 }},
		{"vocabulary", func(c *Config) { c.VocabularySize = 0 }},
		{"extractor", func(c *Config) { c.Extractor = "surf" }},
		{"clusterer", func(c *Config) { c.Clusterer = "dbscan" }},
		{"iterations", func(c *Config) { c.KMeans.Iterations = 0 }},
		{"epsilon", func(c *Config) { c.KMeans.Epsilon = -1 }},
		{"attempts", func(c *Config) { c.KMeans.Attempts = 0 }},
		{"classifier", func(c *Config) { c.Classifier = "svm" }},
		{"lambda", func(c *Config) { c.RidgeLambda = 0 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"no extensions", func(c *Config) { c.Extensions = nil }},
		{"bad extension", func(c *Config) { c.Extensions = []string{".gif"} }},
		{"blank extension", func(c *Config) { c.Extensions = []string{" "} }},
		{"max side", func(c *Config) { c.MaxImageSide = -1 }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}

func TestLambdaIgnoredForCentroid(t *testing.T) {
	c := Default().WithClassifier("centroid")
	c.RidgeLambda = 0
	assert.NoError(t, c.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sectors: 6
vocabulary_size: 50
clusterer: lloyd
kmeans:
  iterations: 20
  seed: 7
extensions: [".png", ".webp"]
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Sectors)
	assert.Equal(t, 50, c.VocabularySize)
	assert.Equal(t, ClustererLloyd, c.Clusterer)
	assert.Equal(t, 20, c.KMeans.Iterations)
	assert.Equal(t, int64(7), c.KMeans.Seed)
	assert.Equal(t, 3, c.KMeans.Attempts, "unset keys keep defaults")
	assert.Equal(t, []string{".png", ".webp"}, c.Extensions)
	assert.NoError(t, c.Validate())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalid)

	path := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sektors: 3\n"), 0644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}
