// Package splitting cuts audio files that exceed the in-game track length
// cap into lossless WAV segments ready for individual conversion.
package splitting
