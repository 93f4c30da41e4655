// Command bowdump exports the spatial bag-of-words vectors of a labeled
// image corpus. It vectorizes every image against a vocabulary and writes
// the training matrix, with paths and class names, to a JSON file.
//
// Usage: bowdump [flags] <training-dir> <vocab> [output-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"visual-bow/internal/config"
	"visual-bow/internal/corpus"
	"visual-bow/internal/cli/native"
	"visual-bow/internal/logging"
	"visual-bow/internal/pipeline"
	"visual-bow/internal/vocabulary"
)

// Sample is one exported row.
type Sample struct {
	Key    int       `json:"key"`
	Path   string    `json:"path"`
	Class  string    `json:"class"`
	Label  int       `json:"label"`
	Vector []float64 `json:"vector"`
}

// Dump is the output file layout.
type Dump struct {
	Sectors        int      `json:"sectors"`
	VocabularySize int      `json:"vocabulary_size"`
	Classes        []string `json:"classes"`
	Samples        []Sample `json:"samples"`
}

func main() {
	cfg := config.Default()
	sectors := flag.Int("sectors", cfg.Sectors, "sectors per image")
	extractor := flag.String("extractor", cfg.Extractor, "descriptor extractor: sift or patch")
	workers := flag.Int("workers", cfg.Workers, "images processed in parallel")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <training-dir> <vocab> [output-json]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExports spatial bag-of-words vectors of a labeled corpus.\n")
		fmt.Fprintf(os.Stderr, "Default output: out/bow_vectors.json\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}
	dir, vocabPath := flag.Arg(0), flag.Arg(1)
	outputPath := "out/bow_vectors.json"
	if flag.NArg() >= 3 {
		outputPath = flag.Arg(2)
	}

	cfg = cfg.WithSectors(*sectors).WithExtractor(*extractor).WithWorkers(*workers)
	log := logging.New(os.Stderr, cfg.LogLevel, true)

	p, err := pipeline.New(cfg, native.Extractor(cfg), log, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Loading vocabulary: %s\n", vocabPath)
	vocab, err := vocabulary.Load(vocabPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading vocabulary: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	matrix, registry, skipped, err := p.BuildMatrix(ctx, dir, vocab)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error vectorizing %s: %v\n", dir, err)
		os.Exit(1)
	}

	// Keys are stable for an unchanged tree, so a rescan recovers the paths.
	labeled, err := corpus.ScanLabeled(dir, cfg.Matcher())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", dir, err)
		os.Exit(1)
	}
	paths := make(map[int]corpus.Item, len(labeled.Items))
	for _, it := range labeled.Items {
		paths[it.Key] = it
	}

	dump := Dump{
		Sectors:        cfg.Sectors,
		VocabularySize: vocab.K(),
		Classes:        registry.Names(),
	}
	for _, row := range matrix.Rows() {
		it := paths[row.Key]
		dump.Samples = append(dump.Samples, Sample{
			Key:    row.Key,
			Path:   it.Path,
			Class:  it.Class,
			Label:  row.Label,
			Vector: row.Vector,
		})
		fmt.Printf("  %4d %-10s %s\n", row.Key, it.Class, it.Path)
	}

	out, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nWrote %d vectors (%d skipped) to %s\n", len(dump.Samples), skipped, outputPath)
}
