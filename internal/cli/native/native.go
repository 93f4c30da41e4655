// Package native supplies the OpenCV-backed SIFT extractor and k-means
// clusterer to the command line. Importing it requires cgo and OpenCV.
package native

import (
	"visual-bow/internal/cli"
	"visual-bow/internal/config"
	"visual-bow/internal/features"
	"visual-bow/internal/features/sift"
	"visual-bow/internal/vocabulary"
	"visual-bow/internal/vocabulary/opencv"
)

// Factories picks SIFT or patch descriptors and OpenCV or Lloyd clustering
// as cfg asks.
func Factories() cli.Factories {
	return cli.Factories{Extractor: Extractor, Clusterer: Clusterer}
}

// Extractor returns the descriptor extractor named by cfg.Extractor.
func Extractor(cfg config.Config) features.Extractor {
	if cfg.Extractor == config.ExtractorPatch {
		return features.NewPatch()
	}
	return sift.New()
}

// Clusterer returns the clusterer named by cfg.Clusterer.
func Clusterer(cfg config.Config) vocabulary.Clusterer {
	if cfg.Clusterer == config.ClustererLloyd {
		return cli.Lloyd(cfg)
	}
	c := opencv.New()
	c.MaxIter = cfg.KMeans.Iterations
	c.Epsilon = cfg.KMeans.Epsilon
	c.Attempts = cfg.KMeans.Attempts
	return c
}
