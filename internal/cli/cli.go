// Package cli implements the visual-bow command line: flag parsing, mode
// dispatch and the mapping of failures to exit codes. Descriptor extraction
// and clustering backends are supplied by the caller, so the package itself
// needs no cgo.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"visual-bow/internal/category"
	"visual-bow/internal/classifier"
	"visual-bow/internal/config"
	"visual-bow/internal/corpus"
	"visual-bow/internal/features"
	"visual-bow/internal/logging"
	"visual-bow/internal/pipeline"
	"visual-bow/internal/version"
	"visual-bow/internal/vocabulary"

	"github.com/rs/zerolog"
)

// Exit codes returned by Run.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// Factories build the backends selected by a validated config.
type Factories struct {
	Extractor func(config.Config) features.Extractor
	Clusterer func(config.Config) vocabulary.Clusterer
}

// PureGo returns factories that always use the dense patch extractor and
// Lloyd's k-means, whatever the config names.
func PureGo() Factories {
	return Factories{
		Extractor: func(config.Config) features.Extractor { return features.NewPatch() },
		Clusterer: Lloyd,
	}
}

// Lloyd returns a Lloyd clusterer tuned by cfg.KMeans.
func Lloyd(cfg config.Config) vocabulary.Clusterer {
	l := vocabulary.NewLloyd(cfg.KMeans.Seed)
	l.MaxIter = cfg.KMeans.Iterations
	l.Epsilon = cfg.KMeans.Epsilon
	return l
}

const (
	defaultVocabOut      = "vocab/vocab.sift"
	defaultClassifierOut = "model/classifier.json"
)

const (
	usageTrain    = "Usage: -t <training_dir> -r <reference_vocab> -d <dictionary_output>"
	usageEvaluate = "Usage: -e <evaluating_dir> -r <reference_vocab> -c <reference_classifier> -d <reference_dictionary>"
)

type options struct {
	vocabDir, trainDir, evalDir string
	vocabFile, classifierFile   string
	dictionaryFile, output      string
	configFile                  string
	showVersion                 bool
}

// Run parses args, executes the selected mode and returns the process exit
// code: 0 on success, 1 on a processing failure, 2 on a usage or
// configuration error and 130 when ctx is cancelled.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, f Factories) int {
	fs := flag.NewFlagSet("visual-bow", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.vocabDir, "v", "", "build a vocabulary from the images in `dir`")
	fs.StringVar(&opts.trainDir, "t", "", "train on the class-per-subdirectory corpus in `dir`")
	fs.StringVar(&opts.evalDir, "e", "", "evaluate on the class-per-subdirectory corpus in `dir`")
	fs.StringVar(&opts.vocabFile, "r", "", "reference vocabulary `file`")
	fs.StringVar(&opts.classifierFile, "c", "", "reference classifier `file`")
	fs.StringVar(&opts.dictionaryFile, "d", "", "category dictionary `file` (written by -t, read by -e)")
	fs.StringVar(&opts.output, "o", "", "output `file` (default "+defaultVocabOut+" for -v, "+defaultClassifierOut+" for -t)")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration `file`")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	def := config.Default()
	sectors := fs.Int("sectors", def.Sectors, "sectors per image")
	words := fs.Int("words", def.VocabularySize, "visual words in a new vocabulary")
	workers := fs.Int("workers", def.Workers, "images processed in parallel")
	kind := fs.String("classifier", def.Classifier, "classifier kind: "+strings.Join(classifier.Kinds(), ", "))
	extractor := fs.String("extractor", def.Extractor, "descriptor extractor: sift or patch")
	clusterer := fs.String("clusterer", def.Clusterer, "vocabulary clustering: opencv or lloyd")
	maxSide := fs.Int("max-side", def.MaxImageSide, "downscale images so no side exceeds this (0 = off)")
	logLevel := fs.String("log-level", def.LogLevel, "log level")
	jsonLogs := fs.Bool("json-logs", false, "write JSON logs instead of console output")
	metricsOut := fs.String("metrics-out", "", "write Prometheus counters to this `file` after the run")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		return ExitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return ExitUsage
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String(fs.Name()))
		return ExitOK
	}

	cfg := def
	if opts.configFile != "" {
		loaded, err := config.Load(opts.configFile)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return ExitUsage
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sectors":
			cfg = cfg.WithSectors(*sectors)
		case "words":
			cfg = cfg.WithVocabularySize(*words)
		case "workers":
			cfg = cfg.WithWorkers(*workers)
		case "classifier":
			cfg = cfg.WithClassifier(*kind)
		case "extractor":
			cfg = cfg.WithExtractor(*extractor)
		case "clusterer":
			cfg = cfg.WithClusterer(*clusterer)
		case "max-side":
			cfg.MaxImageSide = *maxSide
		case "log-level":
			cfg.LogLevel = *logLevel
		case "json-logs":
			cfg.Console = !*jsonLogs
		case "metrics-out":
			cfg.MetricsOut = *metricsOut
		}
	})

	log := logging.New(stderr, cfg.LogLevel, cfg.Console)
	err := dispatch(ctx, opts, cfg, f, log, stdout, stderr)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, pipeline.ErrConfiguration), errors.Is(err, config.ErrInvalid):
		fmt.Fprintln(stderr, err)
		return ExitUsage
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("interrupted")
		return ExitInterrupted
	default:
		log.Error().Err(err).Msg("run failed")
		return ExitFailure
	}
}

func dispatch(ctx context.Context, opts options, cfg config.Config, f Factories, log zerolog.Logger, stdout, stderr io.Writer) error {
	modes := 0
	for _, d := range []string{opts.vocabDir, opts.trainDir, opts.evalDir} {
		if d != "" {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(stderr, "Usage: -v <image_dir> [-o vocab_out]")
		fmt.Fprintln(stderr, usageTrain)
		fmt.Fprintln(stderr, usageEvaluate)
		return fmt.Errorf("%w: exactly one of -v, -t, -e is required", pipeline.ErrConfiguration)
	}

	switch {
	case opts.trainDir != "" && (opts.vocabFile == "" || opts.dictionaryFile == ""):
		fmt.Fprintln(stderr, usageTrain)
		return fmt.Errorf("%w: -t needs -r and -d", pipeline.ErrConfiguration)
	case opts.evalDir != "" && (opts.vocabFile == "" || opts.classifierFile == "" || opts.dictionaryFile == ""):
		fmt.Fprintln(stderr, usageEvaluate)
		return fmt.Errorf("%w: -e needs -r, -c and -d", pipeline.ErrConfiguration)
	}

	metrics := pipeline.NewMetrics()
	p, err := pipeline.New(cfg, f.Extractor(cfg), log, metrics)
	if err != nil {
		return err
	}

	switch {
	case opts.vocabDir != "":
		err = buildVocabulary(ctx, p, f.Clusterer(cfg), opts, log)
	case opts.trainDir != "":
		err = train(ctx, p, opts, log)
	default:
		err = evaluate(ctx, p, opts, log, stdout)
	}
	if err != nil {
		return err
	}

	if cfg.MetricsOut != "" {
		if err := metrics.WriteTextfile(cfg.MetricsOut); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func buildVocabulary(ctx context.Context, p *pipeline.Pipeline, clusterer vocabulary.Clusterer, opts options, log zerolog.Logger) error {
	out := opts.output
	if out == "" {
		out = defaultVocabOut
	}
	vocab, err := p.BuildVocabulary(ctx, opts.vocabDir, clusterer)
	if errors.Is(err, pipeline.ErrNoImages) {
		// Nothing to cluster; no artifact is written.
		return nil
	}
	if err != nil {
		return err
	}
	if err := vocab.Save(out); err != nil {
		return fmt.Errorf("save vocabulary: %w", err)
	}
	log.Info().Str("path", out).Int("words", vocab.K()).Msg("saved vocabulary")
	return nil
}

func train(ctx context.Context, p *pipeline.Pipeline, opts options, log zerolog.Logger) error {
	if err := checkInputs(opts.trainDir, opts.vocabFile); err != nil {
		return err
	}
	out := opts.output
	if out == "" {
		out = defaultClassifierOut
	}

	vocab, err := loadVocabulary(opts.vocabFile, log)
	if err != nil {
		return err
	}
	res, err := p.Train(ctx, opts.trainDir, vocab)
	if err != nil {
		return err
	}

	log.Info().Str("path", out).Msg("saving classifier")
	if err := classifier.Save(res.Classifier, out); err != nil {
		return fmt.Errorf("save classifier: %w", err)
	}
	log.Info().Str("path", opts.dictionaryFile).Msg("saving dictionary")
	if err := res.Registry.Save(opts.dictionaryFile); err != nil {
		return fmt.Errorf("save dictionary: %w", err)
	}
	return nil
}

func evaluate(ctx context.Context, p *pipeline.Pipeline, opts options, log zerolog.Logger, stdout io.Writer) error {
	if err := checkInputs(opts.evalDir, opts.vocabFile, opts.classifierFile, opts.dictionaryFile); err != nil {
		return err
	}

	vocab, err := loadVocabulary(opts.vocabFile, log)
	if err != nil {
		return err
	}
	log.Info().Str("path", opts.classifierFile).Msg("loading classifier")
	clf, err := classifier.Load(opts.classifierFile)
	if err != nil {
		return fmt.Errorf("%w: load classifier: %v", pipeline.ErrDataConsistency, err)
	}
	log.Info().Str("path", opts.dictionaryFile).Msg("loading dictionary")
	registry, err := category.Load(opts.dictionaryFile)
	if err != nil {
		return fmt.Errorf("%w: load dictionary: %v", pipeline.ErrDataConsistency, err)
	}

	report, err := p.Evaluate(ctx, opts.evalDir, vocab, clf, registry)
	if err != nil {
		return err
	}
	_, err = report.WriteTo(stdout)
	return err
}

func loadVocabulary(path string, log zerolog.Logger) (*vocabulary.Vocabulary, error) {
	log.Info().Str("path", path).Msg("loading vocabulary")
	vocab, err := vocabulary.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrDataConsistency, err)
	}
	return vocab, nil
}

// checkInputs verifies that dir is a directory and every file exists.
func checkInputs(dir string, files ...string) error {
	if err := corpus.CheckDir(dir); err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrConfiguration, err)
	}
	for _, f := range files {
		if fi, err := os.Stat(f); err != nil || fi.IsDir() {
			return fmt.Errorf("%w: %s: No such file", pipeline.ErrConfiguration, f)
		}
	}
	return nil
}
