package template

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteArchive creates a deflate-compressed zip at outPath containing the
// given files, named by their paths relative to baseDir. A file outside
// baseDir is a caller bug and fails the whole archive. On error the partial
// archive is left on disk; removing it is the caller's job.
func WriteArchive(outPath string, files []File, baseDir string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", outPath, err)
	}
	zw := zip.NewWriter(out)

	for _, f := range files {
		if err := addFile(zw, f, baseDir); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return err
		}
	}

	// Close order matters: the central directory is written by zw.Close,
	// and the file must be fully flushed before the upload starts.
	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finalize archive %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", outPath, err)
	}
	return nil
}

func addFile(zw *zip.Writer, f File, baseDir string) error {
	rel, err := filepath.Rel(baseDir, f.Path)
	if err != nil {
		return fmt.Errorf("relativize %s against %s: %w", f.Path, baseDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("file %s is outside base dir %s", f.Path, baseDir)
	}

	w, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return fmt.Errorf("add %s to archive: %w", rel, err)
	}
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer src.Close()
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write %s to archive: %w", rel, err)
	}
	return nil
}
