// Package config holds the run parameters shared by the vocabulary, train
// and evaluate stages.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"

	"visual-bow/internal/classifier"
	imgfile "visual-bow/internal/image"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Clusterer backends.
const (
	ClustererOpenCV = "opencv"
	ClustererLloyd  = "lloyd"
)

// Extractor backends.
const (
	ExtractorSIFT  = "sift"
	ExtractorPatch = "patch"
)

// KMeans tunes vocabulary clustering.
type KMeans struct {
	Iterations int     `yaml:"iterations"`
	Epsilon    float64 `yaml:"epsilon"`
	Attempts   int     `yaml:"attempts"`
	Seed       int64   `yaml:"seed"`
}

// Config is one run's parameters. Sectors and VocabularySize must match
// across the vocabulary, train and evaluate runs of one model.
type Config struct {
	Sectors        int      `yaml:"sectors"`
	VocabularySize int      `yaml:"vocabulary_size"`
	Extractor      string   `yaml:"extractor"`
	Clusterer      string   `yaml:"clusterer"`
	KMeans         KMeans   `yaml:"kmeans"`
	Classifier     string   `yaml:"classifier"`
	RidgeLambda    float64  `yaml:"ridge_lambda"`
	Workers        int      `yaml:"workers"`
	Extensions     []string `yaml:"extensions"`
	MaxImageSide   int      `yaml:"max_image_side"` // 0 disables downscaling
	LogLevel       string   `yaml:"log_level"`
	Console        bool     `yaml:"console"`
	MetricsOut     string   `yaml:"metrics_out"`
}

// Default returns the parameters used when nothing is configured.
func Default() Config {
	return Config{
		Sectors:        4,
		VocabularySize: 100,
		Extractor:      ExtractorSIFT,
		Clusterer:      ClustererOpenCV,
		KMeans: KMeans{
			Iterations: 100,
			Epsilon:    0.2,
			Attempts:   3,
			Seed:       1,
		},
		Classifier:  classifier.KindRidge,
		RidgeLambda: classifier.DefaultLambda,
		Workers:     runtime.GOMAXPROCS(0),
		Extensions:  imgfile.DefaultFormats(),
		LogLevel:    "info",
		Console:     true,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	return c, nil
}

// WithSectors returns a copy of c using n sectors per image.
func (c Config) WithSectors(n int) Config {
	c.Sectors = n
	return c
}

// WithVocabularySize returns a copy of c clustering k visual words.
func (c Config) WithVocabularySize(k int) Config {
	c.VocabularySize = k
	return c
}

// WithWorkers returns a copy of c processing n images in parallel.
func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// WithClassifier returns a copy of c training the given classifier kind.
func (c Config) WithClassifier(kind string) Config {
	c.Classifier = kind
	return c
}

// WithExtractor returns a copy of c using the named descriptor extractor.
func (c Config) WithExtractor(name string) Config {
	c.Extractor = name
	return c
}

// WithClusterer returns a copy of c using the named clustering backend.
func (c Config) WithClusterer(name string) Config {
	c.Clusterer = name
	return c
}

// WithExtensions returns a copy of c accepting the given image extensions.
func (c Config) WithExtensions(exts ...string) Config {
	c.Extensions = append([]string(nil), exts...)
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Sectors < 1:
		return bad("sectors must be >= 1, got %d", c.Sectors)
	case c.VocabularySize < 1:
		return bad("vocabulary_size must be >= 1, got %d", c.VocabularySize)
	case c.Extractor != ExtractorSIFT && c.Extractor != ExtractorPatch:
		return bad("extractor must be %q or %q, got %q", ExtractorSIFT, ExtractorPatch, c.Extractor)
	case c.Clusterer != ClustererOpenCV && c.Clusterer != ClustererLloyd:
		return bad("clusterer must be %q or %q, got %q", ClustererOpenCV, ClustererLloyd, c.Clusterer)
	case c.KMeans.Iterations < 1:
		return bad("kmeans.iterations must be >= 1, got %d", c.KMeans.Iterations)
	case c.KMeans.Epsilon < 0:
		return bad("kmeans.epsilon must be >= 0, got %g", c.KMeans.Epsilon)
	case c.KMeans.Attempts < 1:
		return bad("kmeans.attempts must be >= 1, got %d", c.KMeans.Attempts)
	case !slices.Contains(classifier.Kinds(), c.Classifier):
		return bad("classifier must be one of %v, got %q", classifier.Kinds(), c.Classifier)
	case c.Classifier == classifier.KindRidge && c.RidgeLambda <= 0:
		return bad("ridge_lambda must be > 0, got %g", c.RidgeLambda)
	case c.Workers < 1:
		return bad("workers must be >= 1, got %d", c.Workers)
	case len(c.Extensions) == 0:
		return bad("extensions must not be empty")
	case c.MaxImageSide < 0:
		return bad("max_image_side must be >= 0, got %d", c.MaxImageSide)
	}
	for _, e := range c.Extensions {
		if !imgfile.IsSupportedFormat("x" + imgfile.NormalizeExt(e)) {
			return bad("extension %q cannot be decoded; supported: %v", e, imgfile.SupportedFormats())
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return bad("log_level: %v", err)
	}
	return nil
}

// Matcher returns the image matcher for the configured extensions.
func (c Config) Matcher() imgfile.Matcher {
	return imgfile.NewMatcher(c.Extensions)
}
