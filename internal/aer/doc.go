// Package aer owns the dataset and trial abstractions shared by every
// corpus implementation.
//
// Ownership boundary:
// - dataset/trial interfaces and metadata shapes
// - working-directory layout and preload bookkeeping
// - participant/media offset scheme
// - trial splits and balanced/interleaved trial sets
// - dataset registry primitives
package aer
