package seq

import "fmt"

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the conventional name of a note number, with middle C
// (note 60) being "C4".
func NoteName(note int) string {
	return fmt.Sprintf("%s%d", noteNames[((note%12)+12)%12], note/12-1)
}

// NoteNumber is the inverse of NoteName: NoteNumber(4, 0) is middle C.
func NoteNumber(octave, semitone int) int {
	return (octave+1)*12 + semitone
}
