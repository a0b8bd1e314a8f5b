// Package ffmpeg wraps the ffmpeg command line for the two operations the
// build pipeline needs: converting audio to Ogg Vorbis and splitting long
// tracks into fixed-length WAV segments.
//
// Output is streamed line by line while the process runs. Progress lines are
// parsed into Progress updates, clipping warnings are counted rather than
// forwarded, and a short tail of recent output is attached to failure errors.
package ffmpeg
