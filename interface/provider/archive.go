package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver"
)

var archiveExtensions = []string{".zip", ".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".rar"}

func isArchive(file string) bool {
	file = strings.ToLower(file)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(file, ext) {
			return true
		}
	}
	return false
}

// ErrAmbiguousArchive is returned when an archive does not contain exactly one file
type ErrAmbiguousArchive struct {
	Archive string
	Files   []string
}

func (e ErrAmbiguousArchive) Error() string {
	return fmt.Sprintf("archive %s must contain exactly one file (found %d)", e.Archive, len(e.Files))
}

// unarchive extracts the archive in a new directory of localDir and returns the path of the file extracted
func unarchive(archive, localDir string) (string, error) {
	tmpdir, err := os.MkdirTemp(localDir, filepath.Base(archive))
	if err != nil {
		return "", fmt.Errorf("unarchive.MkdirTemp: %w", err)
	}
	if err := archiver.Unarchive(archive, tmpdir); err != nil {
		return "", fmt.Errorf("unarchive: %w", err)
	}
	var files []string
	err = filepath.Walk(tmpdir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unarchive.Walk: %w", err)
	}
	if len(files) != 1 {
		return "", ErrAmbiguousArchive{Archive: archive, Files: files}
	}
	return files[0], nil
}
