// Package seq infers numbered image sequences from directory listings.
//
// Parse classifies a single file name into a printf pattern and a number:
//
//	img0007.jpg -> img%04d.jpg, 7
//
// Only the first run of digits becomes the placeholder. Zero padding is part
// of the pattern, so img07.jpg and img007.jpg never belong to the same
// sequence.
//
// Scanner groups the parsed names of a directory by pattern, picks the
// largest group and reports the gapless run of numbers starting at its
// minimum. That run is what an encoder reading pattern + start number can
// consume without skipping frames.
package seq
