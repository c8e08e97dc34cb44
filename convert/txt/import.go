// Package txt converts between documents and plain text. Import groups
// lines into paragraphs on blank lines; export linearizes through the plain
// text projection. All formatting is lost by construction and reported as a
// single warning rather than once per attribute.
package txt

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"olc/common"
	"olc/doc"
	"olc/style"
)

// Import parses plain text into a document. Consecutive non-blank lines
// form one paragraph with explicit line breaks between them; one or more
// blank lines separate paragraphs; form feeds become page breaks.
func Import(data []byte, log *zap.Logger) (*doc.Document, []common.FidelityWarning, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, nil, common.Unreadable(common.FormatTxt, nil, "input contains NUL bytes, not a text file")
	}

	text, warnings, err := decodeText(data, log)
	if err != nil {
		return nil, nil, err
	}

	d := doc.New()
	for _, segment := range strings.Split(text, "\f") {
		if len(d.Blocks) > 0 {
			d.Blocks = append(d.Blocks, doc.NewPageBreak())
		}
		d.Blocks = append(d.Blocks, segmentBlocks(segment)...)
	}
	log.Debug("imported plain text", zap.Int("blocks", len(d.Blocks)), zap.Int("chars", utf8.RuneCountInString(text)))
	return d, warnings, nil
}

// decodeText converts arbitrary input bytes to UTF-8 with normalized line
// endings. Valid UTF-8 passes through; anything else goes through charset
// detection, which for single-byte encodings always yields some reading,
// so only transformation failures are fatal.
func decodeText(data []byte, log *zap.Logger) (string, []common.FidelityWarning, error) {
	var warnings []common.FidelityWarning
	if !utf8.Valid(data) {
		enc, name, certain := charset.DetermineEncoding(data, "text/plain")
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil || !utf8.Valid(decoded) {
			return "", nil, common.Unreadable(common.FormatTxt, err, "undecodable character data")
		}
		log.Debug("transcoded text input", zap.String("charset", name), zap.Bool("certain", certain))
		warnings = append(warnings, common.Warn("charset-guessed", "",
			"input was not UTF-8, decoded as %s", name))
		data = decoded
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimPrefix(text, "\ufeff")
	return text, warnings, nil
}

func segmentBlocks(segment string) []*doc.Block {
	var blocks []*doc.Block
	for _, group := range splitGroups(segment) {
		p := &doc.Paragraph{}
		for i, line := range group {
			if i > 0 {
				p.Runs = append(p.Runs, &doc.Run{Kind: doc.RunBreak})
			}
			if line != "" {
				p.Runs = append(p.Runs, doc.NewTextRun(line, style.Attrs{}))
			}
		}
		blocks = append(blocks, &doc.Block{Kind: doc.BlockParagraph, Para: p})
	}
	return blocks
}

// splitGroups separates lines into paragraph groups on blank lines.
func splitGroups(segment string) [][]string {
	var groups [][]string
	var current []string
	for _, line := range strings.Split(segment, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
