// Package session owns the editing state around one open document: the
// dirty marker, the originating path and format, the cursor, and dictated
// text insertion. The document itself stays a plain model; everything
// UI-lifecycle shaped lives here.
package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"olc/common"
	"olc/config"
	"olc/convert"
	"olc/doc"
	"olc/speech"
	"olc/style"
)

// Cursor is an insertion point: a top-level block index and a run boundary
// inside it. Run == 0 means before the first run.
type Cursor struct {
	Block int
	Run   int
}

type Session struct {
	log *zap.Logger

	d      *doc.Document
	path   string
	format common.Format
	dirty  bool
	cursor Cursor
}

// New creates a session around a fresh empty document with the configured
// defaults applied.
func New(cfg *config.Config, log *zap.Logger) *Session {
	d := doc.New()
	d.Meta.Lang = cfg.Document.Language
	d.Meta.ReadingAid = cfg.Document.ReadingAid
	if p := cfg.Document.Page; p.WidthPt > 0 {
		d.Meta.Page = doc.PageSetup{WidthPt: p.WidthPt, HeightPt: p.HeightPt, MarginPt: p.MarginPt}
	}
	return &Session{log: log.Named("session"), d: d, format: common.FormatOLC}
}

// Open loads a document from disk into a new session.
func Open(path string, log *zap.Logger) (*Session, []common.FidelityWarning, error) {
	d, format, warnings, err := convert.ImportFile(path, log)
	if err != nil {
		return nil, warnings, err
	}
	return &Session{
		log:    log.Named("session"),
		d:      d,
		path:   path,
		format: format,
	}, warnings, nil
}

func (s *Session) Document() *doc.Document { return s.d }
func (s *Session) Path() string            { return s.path }
func (s *Session) Format() common.Format   { return s.format }
func (s *Session) Dirty() bool             { return s.dirty }
func (s *Session) Cursor() Cursor          { return s.cursor }

// MarkDirty records an external edit to the document.
func (s *Session) MarkDirty() {
	s.dirty = true
	s.d.Touch()
}

// WordCount reports whitespace-separated words for the status surface.
func (s *Session) WordCount() int { return s.d.WordCount() }

// CharCount reports runes of the plain text projection.
func (s *Session) CharCount() int { return s.d.CharCount() }

// DefaultExportFormat is the target offered by default when saving: the
// originating format when one exists, the native format otherwise.
func (s *Session) DefaultExportFormat() common.Format {
	if s.format.Exportable() {
		return s.format
	}
	return common.FormatOLC
}

// SetCursor moves the insertion point, validating it against the document.
func (s *Session) SetCursor(c Cursor) error {
	if c.Block < 0 || c.Block > len(s.d.Blocks) {
		return fmt.Errorf("cursor block %d out of range", c.Block)
	}
	if c.Block < len(s.d.Blocks) {
		if p := s.d.Blocks[c.Block].Paragraph(); p != nil {
			if c.Run < 0 || c.Run > len(p.Runs) {
				return fmt.Errorf("cursor run %d out of range", c.Run)
			}
		} else if c.Run != 0 {
			return fmt.Errorf("cursor run %d in non-paragraph block", c.Run)
		}
	} else if c.Run != 0 {
		return fmt.Errorf("cursor run %d past document end", c.Run)
	}
	s.cursor = c
	return nil
}

// punctuationMarks maps the dictation collaborator's punctuation hints to
// the characters they stand for.
var punctuationMarks = map[string]string{
	"period":      ".",
	"comma":       ",",
	"question":    "?",
	"exclamation": "!",
	"colon":       ":",
	"semicolon":   ";",
}

// InsertDictation inserts one recognized fragment at the cursor. Plain text
// gets a trailing space so consecutive fragments read naturally; a
// punctuation hint attaches to the preceding text instead of floating after
// the space.
func (s *Session) InsertDictation(rec speech.Recognition) error {
	if mark, ok := punctuationMarks[rec.Punctuation]; ok {
		return s.insertText(mark+" ", true)
	}
	if rec.Punctuation != "" {
		s.log.Debug("ignoring unknown punctuation hint", zap.String("hint", rec.Punctuation))
	}
	if rec.Text == "" {
		return nil
	}
	return s.insertText(rec.Text+" ", false)
}

func (s *Session) insertText(text string, attach bool) error {
	// Dictating into an empty document or onto a non-paragraph block opens
	// a fresh paragraph at the cursor.
	if s.cursor.Block >= len(s.d.Blocks) || s.d.Blocks[s.cursor.Block].Paragraph() == nil {
		if err := s.d.InsertBlock(s.cursor.Block, doc.NewParagraphBlock("")); err != nil {
			return err
		}
		s.cursor.Run = 0
	}

	p := s.d.Blocks[s.cursor.Block].Paragraph()
	if attach && s.cursor.Run > 0 {
		if prev := p.Runs[s.cursor.Run-1]; prev.Kind == doc.RunText {
			prev.Text = strings.TrimRight(prev.Text, " ") + text
			s.MarkDirty()
			return nil
		}
	}

	if err := s.d.InsertRun(s.cursor.Block, s.cursor.Run, doc.NewTextRun(text, style.Attrs{})); err != nil {
		return err
	}
	s.cursor.Run++
	s.MarkDirty()
	return nil
}

// Save writes the document back to its originating path. Documents without
// a path yet must go through SaveAs.
func (s *Session) Save(ctx context.Context, opts convert.Options) ([]common.FidelityWarning, error) {
	if s.path == "" {
		return nil, fmt.Errorf("document has no file yet")
	}
	opts.Overwrite = true
	return s.SaveAs(ctx, s.path, s.DefaultExportFormat(), opts)
}

// SaveAs writes the document to path in the given format and, on success,
// makes that the session's file.
func (s *Session) SaveAs(ctx context.Context, path string, format common.Format, opts convert.Options) ([]common.FidelityWarning, error) {
	warnings, err := convert.ExportFile(ctx, s.d, path, format, opts, s.log)
	if err != nil {
		return warnings, err
	}
	s.path, s.format = path, format
	if format.Lossless() {
		s.dirty = false
	}
	return warnings, nil
}

// Export writes the document to path without adopting it as the session's
// file, the "export a copy" flow.
func (s *Session) Export(ctx context.Context, path string, format common.Format, opts convert.Options) ([]common.FidelityWarning, error) {
	return convert.ExportFile(ctx, s.d, path, format, opts, s.log)
}
