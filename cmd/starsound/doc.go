// Package main hosts the StarSound CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into mod
// build pipelines, one-off audio conversions and splits, vanilla asset
// scans, plan scaffolding, build history queries, and configuration
// scaffolding. It centralizes configuration resolution, logger setup, and
// ffmpeg client construction so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the heavy lifting lives in
// reusable pipeline components.
package main
