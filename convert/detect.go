package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"olc/common"
)

// olcType is registered with the sniffing library so native documents are
// recognized by content alone, extension or not.
var olcType = filetype.NewType("olc", "application/x-openlautrec")

func init() {
	filetype.AddMatcher(olcType, func(buf []byte) bool {
		return len(buf) >= 4 && bytes.Equal(buf[:4], []byte("OLC!"))
	})
}

// DetectFormat determines the document format from content, falling back to
// the file extension when sniffing is inconclusive. Zip containers are told
// apart by their signature entries, since docx and odt share the same outer
// shell.
func DetectFormat(path string, data []byte) common.Format {
	if filetype.IsType(data, olcType) {
		return common.FormatOLC
	}
	if filetype.Is(data, "zip") {
		if f := zipFormat(data); f != common.FormatUnknown {
			return f
		}
	}
	if f, err := common.ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	if looksLikeHTML(data) {
		return common.FormatHTML
	}
	if len(data) > 0 && bytes.IndexByte(data, 0) < 0 {
		return common.FormatTxt
	}
	return common.FormatUnknown
}

// zipFormat peeks inside a zip container: a WordprocessingML part means
// docx, an ODF mimetype entry (or at least a content.xml) means odt.
func zipFormat(data []byte) common.Format {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return common.FormatUnknown
	}
	hasContentXML := false
	for _, f := range zr.File {
		switch f.Name {
		case "word/document.xml":
			return common.FormatDocx
		case "content.xml":
			hasContentXML = true
		case "mimetype":
			rc, err := f.Open()
			if err != nil {
				continue
			}
			mt, _ := io.ReadAll(io.LimitReader(rc, 128))
			rc.Close()
			if strings.TrimSpace(string(mt)) == "application/vnd.oasis.opendocument.text" {
				return common.FormatOdt
			}
		}
	}
	if hasContentXML {
		return common.FormatOdt
	}
	return common.FormatUnknown
}

func looksLikeHTML(data []byte) bool {
	head := strings.TrimLeft(string(data[:min(len(data), 256)]), "\ufeff \t\r\n")
	lower := strings.ToLower(head)
	return strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html")
}
