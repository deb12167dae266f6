package challenge

import (
	"github.com/flagforge/ctfmanager/pkg/sandbox"
)

// Points computes a challenge's award for a given solve, per spec.md §4.E.
// pointsFn is the event-wide scoring script body (empty if the event has no
// scoring script configured, in which case a flat 100 is returned).
func Points(pointsFn string, metadata *Metadata, totalSolves, nthSolve, totalCompetitors int) (int, error) {
	if pointsFn == "" {
		return 100, nil
	}

	sb := sandbox.New()
	invoke := sb.RegisterPointsFn()
	if err := sb.Eval(pointsFn); err != nil {
		return 0, err
	}
	return invoke(metadataToJS(metadata), int64(totalSolves), int64(nthSolve), int64(totalCompetitors))
}

func metadataToJS(m *Metadata) map[string]any {
	return map[string]any{
		"name":           m.Name,
		"authors":        m.Authors,
		"description_md": m.DescriptionMD,
		"categories":     m.Categories,
		"difficulty":     m.Difficulty,
	}
}
