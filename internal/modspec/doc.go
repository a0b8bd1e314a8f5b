// Package modspec defines the build plan document: which biomes receive
// which tracks, how each file is processed, and where the finished mod is
// installed.
//
// Plans are plain JSON so they can be written by hand or scaffolded with
// `starsound plan init`. A Store persists them under the plans directory
// wrapped in a small {modName, savedAt, plan} envelope; LoadFile also
// accepts a bare plan object without the wrapper.
package modspec
