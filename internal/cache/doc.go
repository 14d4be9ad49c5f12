// Package cache stores synthesized audio in memory and on disk so repeated
// utterances skip synthesis.
package cache
