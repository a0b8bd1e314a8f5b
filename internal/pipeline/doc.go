// Package pipeline orchestrates a full mod build: source validation and
// backup, segmentation of oversized files, pooled conversion, patch
// synthesis and assembly, optional installation, and run bookkeeping. One
// Runner.Run call is one build; a per-mod flock keeps concurrent builds of
// the same mod from racing over the mod tree.
package pipeline
