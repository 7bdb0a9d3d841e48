package session

import "strings"

// TranscriptBuffer accumulates transcript fragments for one meeting in
// arrival order. It is not safe for concurrent use on its own: every
// access goes through the owning Session's mutex.
type TranscriptBuffer struct {
	fragments []string
}

func (b *TranscriptBuffer) Append(fragment string) {
	b.fragments = append(b.fragments, fragment)
}

// Transcript returns the fragments joined by single spaces, oldest
// first.
func (b *TranscriptBuffer) Transcript() string {
	return strings.Join(b.fragments, " ")
}

func (b *TranscriptBuffer) Clear() {
	b.fragments = nil
}

func (b *TranscriptBuffer) Len() int {
	return len(b.fragments)
}
