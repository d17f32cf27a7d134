package aer

import "errors"

var (
	ErrUnknownSignal     = errors.New("aer: unknown signal type")
	ErrNoGroundTruth     = errors.New("aer: trial has no ground truth")
	ErrInvalidFractions  = errors.New("aer: split fractions must sum to 1.0")
	ErrInvalidPath       = errors.New("aer: invalid working path spec")
	ErrDatasetExists     = errors.New("aer: dataset already registered")
	ErrDatasetNil        = errors.New("aer: dataset factory is nil")
	ErrInvalidMetadata   = errors.New("aer: invalid dataset metadata")
	ErrDatasetNotFound   = errors.New("aer: dataset not registered")
	ErrNoTrials          = errors.New("aer: no trials loaded")
	ErrEmptyQuadrant     = errors.New("aer: quadrant has no trials to sample")
	ErrSignalFileMissing = errors.New("aer: no data file for signal type")
)
