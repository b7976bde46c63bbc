package service

// Package service implements supervision of the external encoder process.
//
// Overview
// A Job wraps the sequence inferred from an image directory plus the encoder
// command built for it. Job.Run hands the command to a Runner and waits for
// the terminal Result.
//
// Runner is a thin, opinionated wrapper around os/exec:
//   - starts the process in the background, Start never blocks
//   - drains stdout and stderr concurrently while the process runs
//     (one goroutine per stream)
//   - forwards every line to a single Sink in arrival order
//   - reports completion through FinishFunc and WaitChan
//
// Data flow:
//
//	  caller                  Runner                     process
//	     |                       |                          |
//	     | Start() ------------->| exec.Start --------------|
//	     |<-- nil (immediately)  |                          |
//	     |                       |<-- stdout lines ---------|
//	     |<-- Sink(line) --------|<-- stderr lines ---------|
//	     |                       |   (process exits)        |
//	     |                       | drain to EOF, then Wait  |
//	     |<-- FinishFunc(Result) |                          |
//	     |<-- WaitChan Result ---|                          |
//
// Invariants:
//   - At most one process per Runner at a time.
//   - Lines of one stream are delivered in the order the process wrote them.
//     Lines of stdout and stderr interleave in the order they were read.
//   - All output is delivered before FinishFunc is called, including output
//     written right before the process exited.
//   - Each Start produces exactly one terminal Result, even when the process
//     can't be started at all.
//   - A slow Sink slows down the process instead of losing output.
//   - Stop and Timeout terminate the process, the run still drains and finishes.
