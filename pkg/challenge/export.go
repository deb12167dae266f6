package challenge

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"gopkg.in/yaml.v3"

	"github.com/flagforge/ctfmanager/pkg/ctferrors"
)

// IgnoreFileName is the custom ignore filename export walking honors,
// carried over from the original implementation's dir_packer.rs.
const IgnoreFileName = ".pflignore"

// SafePack walks scratch (a rendered challenge directory) and produces a
// deterministic gzipped tar, per spec.md §4.D.export: the root itself and
// render.HelperDir are excluded, .pflignore patterns are honored, and the
// top-level docker-compose.yml has its flag and flag_validation_fn fields
// cleared before being re-emitted — the rest of x-ctf-metadata (authors,
// attachments, categories) is preserved.
func SafePack(scratch string) ([]byte, error) {
	matcher := loadIgnoreMatcher(scratch)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(scratch, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return ctferrors.Internalf(err, "walk %s", path)
		}
		rel, err := filepath.Rel(scratch, path)
		if err != nil {
			return ctferrors.Internalf(err, "relativize %s", path)
		}
		if rel == "." {
			return nil
		}
		if rel == "_helpers" || strings.HasPrefix(rel, "_helpers"+string(filepath.Separator)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Base(rel) == IgnoreFileName {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		var body []byte
		if rel == "docker-compose.yml" {
			body, err = scrubCompose(path)
		} else {
			body, err = os.ReadFile(path)
		}
		if err != nil {
			return err
		}

		return writeDeterministicEntry(tw, rel, body, info)
	})
	if err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, ctferrors.Internalf(err, "close tar writer")
	}
	if err := gz.Close(); err != nil {
		return nil, ctferrors.Internalf(err, "close gzip writer")
	}
	return buf.Bytes(), nil
}

func loadIgnoreMatcher(scratch string) *ignore.GitIgnore {
	path := filepath.Join(scratch, IgnoreFileName)
	lines, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(lines), "\n")...)
}

func scrubCompose(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ctferrors.Internalf(err, "read docker-compose.yml")
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, ctferrors.Internalf(err, "parse docker-compose.yml for export")
	}

	if ext, ok := doc["x-ctf-metadata"].(map[string]any); ok {
		delete(ext, "flag")
		delete(ext, "flag_validation_fn")
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, ctferrors.Internalf(err, "re-marshal docker-compose.yml for export")
	}
	return out, nil
}

// writeDeterministicEntry writes a tar entry with fixed uid/gid 1000, mode
// 0644, and the source file's mtime preserved, per spec.md §4.D.export.
func writeDeterministicEntry(tw *tar.Writer, name string, body []byte, info os.FileInfo) error {
	hdr := &tar.Header{
		Name:     filepath.ToSlash(name),
		Mode:     0o644,
		Size:     int64(len(body)),
		ModTime:  info.ModTime(),
		Typeflag: tar.TypeReg,
		Uid:      1000,
		Gid:      1000,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return ctferrors.Internalf(err, "write tar header for %s", name)
	}
	if _, err := tw.Write(body); err != nil {
		return ctferrors.Internalf(err, "write tar body for %s", name)
	}
	return nil
}
