// Package ffmpeg builds the encoder command line turning an image sequence
// into a video and interprets the encoder's status output.
//
// The flags are passed through to ffmpeg as they are; their semantics are
// not validated here.
package ffmpeg
