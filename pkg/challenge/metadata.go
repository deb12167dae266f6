// Package challenge loads, scores, and exports challenge definitions from a
// synced repository, per spec.md §4.D and §4.E. Flag validation and dynamic
// scoring defer to pkg/sandbox; directory materialization defers to
// pkg/render.
package challenge

import (
	"github.com/flagforge/ctfmanager/pkg/ctferrors"
	"github.com/flagforge/ctfmanager/pkg/sandbox"
)

// Metadata is the x-ctf-metadata extension of a challenge's compose
// document, grounded on the original's CtfChallengeMetadata.
type Metadata struct {
	Name               string         `yaml:"name"`
	Authors            []string       `yaml:"authors"`
	DescriptionMD      string         `yaml:"description_md"`
	FlagValidationFn   *string        `yaml:"flag_validation_fn,omitempty"`
	Flag               *string        `yaml:"flag,omitempty"`
	Categories         []string       `yaml:"categories,omitempty"`
	Attachments        []string       `yaml:"attachments,omitempty"`
	ReleaseTime        *int64         `yaml:"release_time,omitempty"`
	EndTime            *int64         `yaml:"end_time,omitempty"`
	AutoPublishSrc     bool           `yaml:"auto_publish_src,omitempty"`
	Difficulty         string         `yaml:"difficulty"`
	AdditionalMetadata map[string]any `yaml:"additional_metadata,omitempty"`
	DataPVCSize        string         `yaml:"data_pvc_size,omitempty"`
}

// CheckFlag validates submitted against either the literal flag or the
// registered flag_validation_fn script, per spec.md §4.E.
func (m *Metadata) CheckFlag(submitted string) (bool, error) {
	if m.FlagValidationFn != nil {
		sb := sandbox.New()
		_, invoke := sb.RegisterFlagValidator()
		if err := sb.Eval(*m.FlagValidationFn); err != nil {
			return false, err
		}
		return invoke(submitted)
	}
	if m.Flag != nil {
		return submitted == *m.Flag, nil
	}
	return false, ctferrors.FailedPreconditionf("challenge has no flag validation method")
}

// SecretMaterial returns the bytes used as the HMAC key when no process-wide
// secret is configured, per spec.md §4.E's insecure fallback.
func (m *Metadata) SecretMaterial() []byte {
	if m.FlagValidationFn != nil {
		return []byte(*m.FlagValidationFn)
	}
	if m.Flag != nil {
		return []byte(*m.Flag)
	}
	return nil
}
