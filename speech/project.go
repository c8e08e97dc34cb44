package speech

import (
	"strings"

	"olc/doc"
)

// Utterance is one synthesizer-ready fragment: contiguous text of a single
// top-level block sharing one resolved language.
type Utterance struct {
	BlockIndex int
	Lang       string
	Text       string
	Sentences  []string
}

// Project linearizes the document into utterances for readback. Text is
// grouped per top-level block and split where the resolved run language
// changes; image runs contribute nothing, line breaks become spaces. The
// from/to block range follows the slice convention; pass 0, len(d.Blocks)
// for the whole document.
func Project(d *doc.Document, from, to int, s *Splitter) []Utterance {
	if from < 0 {
		from = 0
	}
	if to > len(d.Blocks) || to < 0 {
		to = len(d.Blocks)
	}

	var (
		out      []Utterance
		blockIdx = -1
		cur      strings.Builder
		curLang  string
	)
	flush := func() {
		text := strings.TrimSpace(cur.String())
		cur.Reset()
		if text == "" {
			return
		}
		out = append(out, Utterance{
			BlockIndex: blockIdx,
			Lang:       curLang,
			Text:       text,
			Sentences:  s.Split(text),
		})
	}

	d.Walk(func(path string, n doc.Node) bool {
		if n.Block != nil && !strings.Contains(path, ".") {
			flush()
			blockIdx++
			curLang = d.Meta.Lang
			if blockIdx >= to {
				return false
			}
			return true
		}
		if blockIdx < from || n.Run == nil {
			return true
		}

		switch n.Run.Kind {
		case doc.RunText, doc.RunSymbol:
			lang := d.Meta.Lang
			if a := d.Resolve(n.Para, n.Run); a.Lang != nil {
				lang = *a.Lang
			}
			if lang != curLang && cur.Len() > 0 {
				flush()
			}
			curLang = lang
			if n.Run.Kind == doc.RunText {
				cur.WriteString(n.Run.Text)
			} else if n.Run.Symbol != nil {
				cur.WriteString(n.Run.Symbol.Glyph)
			}
		case doc.RunBreak:
			cur.WriteString(" ")
		}
		return true
	})
	flush()
	return out
}
