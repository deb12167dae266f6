package grpcapi

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flagforge/ctfmanager/pkg/ctferrors"
)

// readAttachment reads filename from a rendered challenge's scratch
// directory, refusing to read outside it, per spec.md invariant (6)'s
// render-containment rule.
func readAttachment(scratch, filename string) ([]byte, error) {
	full := filepath.Join(scratch, filename)
	rel, err := filepath.Rel(scratch, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, ctferrors.BadArgumentf("filename %q escapes the challenge directory", filename)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, ctferrors.NotFoundf("attachment %q not found", filename)
	}
	return data, nil
}
