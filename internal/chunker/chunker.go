// Package chunker splits extracted document text into fixed-width segments.
package chunker

import (
	"iter"
	"slices"
	"strings"
)

// DefaultWidth is the maximum chunk width in characters.
const DefaultWidth = 200

// Chunks returns the width-bounded segments of text in order.
//
// Text is broken on whitespace; runs of whitespace collapse to one space and
// never start or end a chunk. A word longer than width first fills the room
// left on the current chunk and then continues in width-sized pieces. The
// sequence is lazy and can be ranged over any number of times. Empty or
// whitespace-only text, or a non-positive width, yields nothing.
func Chunks(text string, width int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if width <= 0 {
			return
		}
		line := make([]rune, 0, width)
		for _, field := range strings.Fields(text) {
			word := []rune(field)
			for len(word) > 0 {
				sep := 0
				if len(line) > 0 {
					sep = 1
				}
				if len(line)+sep+len(word) <= width {
					if sep == 1 {
						line = append(line, ' ')
					}
					line = append(line, word...)
					break
				}
				// fits on a fresh line
				if len(word) <= width {
					if !yield(string(line)) {
						return
					}
					line = line[:0]
					continue
				}
				room := width - len(line) - sep
				if room <= 0 {
					if !yield(string(line)) {
						return
					}
					line = line[:0]
					continue
				}
				if sep == 1 {
					line = append(line, ' ')
				}
				line = append(line, word[:room]...)
				word = word[room:]
				if !yield(string(line)) {
					return
				}
				line = line[:0]
			}
		}
		if len(line) > 0 {
			yield(string(line))
		}
	}
}

// Collect materialises Chunks.
func Collect(text string, width int) []string {
	return slices.Collect(Chunks(text, width))
}
