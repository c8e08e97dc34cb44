package speech

import (
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"
)

type Splitter struct {
	*sentences.DefaultSentenceTokenizer
}

// NewSplitter returns a sentence splitter for readback pacing. Custom
// training data (the tokenizer library's JSON format) takes precedence when
// given; otherwise the embedded English model is used. A nil splitter
// passes text through unsplit.
func NewSplitter(training []byte, log *zap.Logger) *Splitter {
	if len(training) > 0 {
		model, err := sentences.LoadTraining(training)
		if err != nil {
			log.Warn("Unable to load sentence tokenizer training data", zap.Error(err))
		} else {
			return &Splitter{sentences.NewSentenceTokenizer(model)}
		}
	}

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warn("Unable to load sentence tokenizer model", zap.Error(err))
		return nil
	}
	return &Splitter{tokenizer}
}

// Split returns slice of sentences.
func (s *Splitter) Split(in string) []string {

	var result []string
	if s == nil {
		// sentence tokenizer is off
		return append(result, in)
	}

	for _, sentence := range s.Tokenize(in) {
		result = append(result, sentence.Text)
	}

	// The tokenizer attaches sentence trailing spaces to the next sentence,
	// which makes the synthesizer pause in odd places. Move them back.

	for i := range len(result) - 1 {
		for idx, sym := range result[i+1] {
			if !unicode.IsSpace(sym) {
				result[i] = result[i] + result[i+1][0:idx]
				result[i+1] = result[i+1][idx:]
				break
			}
		}
	}
	return result
}
