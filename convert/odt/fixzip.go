package odt

import (
	"fmt"
	"os"
	"path/filepath"

	fixzip "github.com/hidez8891/zip"
)

// FixZip rewrites an archive without data descriptor records. Some ODF
// validators refuse packages whose entries carry descriptors, since the
// spec expects sizes in the local headers. The rewrite goes to a temporary
// file next to the destination and is renamed into place only after every
// entry copied, so a failure leaves no partial archive behind.
func FixZip(from, to string) error {
	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	out, err := os.CreateTemp(filepath.Dir(to), "."+filepath.Base(to)+".*")
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	tmpName := out.Name()
	defer os.Remove(tmpName)

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			w.Close()
			out.Close()
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	if err := w.Close(); err != nil {
		out.Close()
		return fmt.Errorf("unable to finalize target file (%s): %w", to, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("unable to finalize target file (%s): %w", to, err)
	}
	if err := os.Rename(tmpName, to); err != nil {
		return fmt.Errorf("unable to move target file into place (%s): %w", to, err)
	}
	return nil
}
