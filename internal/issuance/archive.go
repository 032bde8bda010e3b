package issuance

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotZip      = errors.New("issuance: upload is not a zip archive")
	ErrNoFiles     = errors.New("issuance: archive contains no usable files")
	ErrNoSheet     = errors.New("issuance: archive contains no spreadsheet")
	ErrNoTemplates = errors.New("issuance: archive contains no PDF templates")
)

// bundle is the extracted content of a bulk upload: one spreadsheet plus
// the certificate templates, keyed by filename stem (the certificate
// number each template belongs to).
type bundle struct {
	SheetPath string
	Templates map[string]string
}

// extractArchive unpacks the zip at zipPath into destDir and indexes its
// contents. Entries with traversal paths are rejected outright; nested
// directories are flattened since only filenames carry meaning here.
func extractArchive(zipPath, destDir string) (*bundle, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, ErrNotZip
	}
	defer r.Close()

	b := &bundle{Templates: map[string]string{}}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if name == "" || strings.HasPrefix(name, ".") || strings.Contains(f.Name, "..") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".pdf" {
			continue
		}

		dest := filepath.Join(destDir, name)
		if err := copyEntry(f, dest); err != nil {
			return nil, err
		}

		switch ext {
		case ".xlsx":
			// first sheet wins; a second one is ignored rather than fatal
			if b.SheetPath == "" {
				b.SheetPath = dest
			}
		case ".pdf":
			b.Templates[strings.TrimSuffix(name, filepath.Ext(name))] = dest
		}
	}

	if b.SheetPath == "" && len(b.Templates) == 0 {
		return nil, ErrNoFiles
	}
	if b.SheetPath == "" {
		return nil, ErrNoSheet
	}
	if len(b.Templates) == 0 {
		return nil, ErrNoTemplates
	}
	return b, nil
}

func copyEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// buildArchive zips the named files into an in-memory archive, flat.
func buildArchive(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		entry, err := w.Create(filepath.Base(p))
		if err != nil {
			return nil, err
		}
		if _, err := entry.Write(data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
