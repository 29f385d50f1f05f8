// Package textwrap splits commentary and safety messages into display lines.
package textwrap

import "unicode/utf8"

// Measure returns the display width of a string.
type Measure func(string) int

// RuneCount measures one unit per rune.
func RuneCount(s string) int {
	return utf8.RuneCountInString(s)
}

// Wrap breaks s into lines no wider than width. Lines are broken at the
// last space that makes the head fit. When no space is left the head is
// shrunk one character at a time from the end until it fits, so a single
// long word is split mid word. At least one character is kept per line.
func Wrap(s string, width int, measure Measure) []string {
	return wrap(s, width, measure, true)
}

// WrapWords is like Wrap but never splits a word: a head without spaces is
// emitted as is even if it is too wide.
func WrapWords(s string, width int, measure Measure) []string {
	return wrap(s, width, measure, false)
}

//nolint:gocognit // mirrors the display policy step by step
func wrap(s string, width int, measure Measure, shrink bool) []string {
	var lines []string
	rest := []rune(s)
	for {
		str := string(rest)
		fw := measure(str)
		if fw < width {
			return append(lines, str)
		}
		head := rest
		var tail []rune
		hasTail := false
		previous := len(rest)
		for fw > width {
			if i := lastSpace(head); i != -1 {
				head = rest[:i]
				tail = rest[i+1:]
				hasTail = true
				previous = i
				fw = measure(string(head))
				continue
			}
			if !shrink {
				break
			}
			for fw > width && previous > 1 {
				previous--
				head = rest[:previous]
				tail = rest[previous:]
				hasTail = true
				fw = measure(string(head))
			}
			break
		}
		lines = append(lines, string(head))
		if !hasTail {
			return lines
		}
		rest = tail
	}
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' {
			return i
		}
	}
	return -1
}
