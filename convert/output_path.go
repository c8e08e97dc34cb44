package convert

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"olc/common"
	"olc/config"
)

// OutputPath builds the destination file path for a conversion: the source
// base name, optionally transliterated to ASCII, cleaned of characters the
// target file system rejects, with the output format's extension.
func OutputPath(src, dstDir string, format common.Format, transliterate bool) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if transliterate {
		base = slug.Make(base)
	}
	return filepath.Join(dstDir, config.CleanFileName(base)+format.Ext())
}
