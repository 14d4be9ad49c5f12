package speech

import "unicode/utf8"

// Progress returns how far through text the boundary is, in percent.
// It is 0 when there is no boundary or no text.
func Progress(boundary *BoundaryEvent, text string) float64 {
	if boundary == nil {
		return 0
	}
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return clamp(float64(boundary.CharIndex)/float64(n)*100, 0, 100)
}
