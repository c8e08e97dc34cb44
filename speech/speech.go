// Package speech defines the collaborator ports for voice dictation and
// readback, and projects documents into plain-text utterances for the
// synthesizer. Audio capture and output stay outside the engine.
package speech

import "context"

// Synthesizer is the text-to-speech collaborator. It receives plain text
// with a BCP-47 language tag and owns the audio output.
type Synthesizer interface {
	Speak(ctx context.Context, text, lang string) error
	Stop()
}

// Recognition is one recognized dictation fragment.
type Recognition struct {
	Text string
	// Punctuation carries the recognizer's punctuation hint ("period",
	// "comma", ...) when the fragment is a spoken punctuation command.
	Punctuation string
}

// Recognizer is the speech-to-text collaborator. Start begins recognition
// in the given language; fragments arrive on the returned channel until the
// context is canceled or Stop is called.
type Recognizer interface {
	Start(ctx context.Context, lang string) (<-chan Recognition, error)
	Stop() error
}
