package challenge

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flagforge/ctfmanager/pkg/compose"
	"github.com/flagforge/ctfmanager/pkg/ctferrors"
	"github.com/flagforge/ctfmanager/pkg/log"
	"github.com/flagforge/ctfmanager/pkg/metrics"
	"github.com/flagforge/ctfmanager/pkg/render"
)

// Challenge is a fully loaded challenge: its metadata, its parsed compose
// document, and (when requested) a safe-pack export archive.
type Challenge struct {
	ID       string
	Metadata *Metadata
	Compose  *compose.Document
	Export   []byte
}

var logger = log.WithComponent("challenge")

// Load renders repo/challs/<id>/ for actor into a scratch directory, parses
// its docker-compose.yml, and extracts the x-ctf-metadata extension, per
// spec.md §4.D. The scratch directory is discarded before returning; use
// OpenForInstance when the rendered tree must survive into translation.
func Load(repo, id, actor string, isExport bool) (*Challenge, error) {
	chall, scratch, err := renderAndParse(repo, id, actor, isExport)
	if scratch != "" {
		defer os.RemoveAll(scratch)
	}
	return chall, err
}

// OpenForInstance is Load's counterpart for StartChallengeInstance: the
// rendered tree is returned alongside the Challenge so the compose
// translator can read env_files from it, and the
// caller is responsible for calling the returned cleanup once translation
// (and, on success, cluster apply) has consumed it.
func OpenForInstance(repo, id, actor string) (*Challenge, string, func(), error) {
	chall, scratch, err := renderAndParse(repo, id, actor, false)
	if err != nil {
		if scratch != "" {
			os.RemoveAll(scratch)
		}
		return nil, "", nil, err
	}
	return chall, scratch, func() { os.RemoveAll(scratch) }, nil
}

func renderAndParse(repo, id, actor string, isExport bool) (*Challenge, string, error) {
	scratch, err := os.MkdirTemp("", "challenge-"+id+"-*")
	if err != nil {
		return nil, "", ctferrors.Internalf(err, "create scratch directory")
	}

	src := filepath.Join(repo, "challs", id)
	if err := render.Tree(src, scratch, render.Context{Actor: actor, IsExport: isExport}); err != nil {
		return nil, scratch, err
	}

	composePath := filepath.Join(scratch, "docker-compose.yml")
	raw, err := os.ReadFile(composePath)
	if err != nil {
		return nil, scratch, ctferrors.NotFoundf("docker-compose.yml not found for challenge %s", id)
	}

	doc, err := compose.Parse(raw)
	if err != nil {
		return nil, scratch, err
	}
	if doc.XCTFMetadata == nil {
		return nil, scratch, ctferrors.FailedPreconditionf("MissingMetadata: challenge %s has no x-ctf-metadata extension", id)
	}

	metadata, err := metadataFromExtension(doc.XCTFMetadata)
	if err != nil {
		return nil, scratch, err
	}

	chall := &Challenge{ID: id, Metadata: metadata, Compose: doc}

	if isExport {
		archive, err := SafePack(scratch)
		if err != nil {
			return nil, scratch, err
		}
		chall.Export = archive
	}

	return chall, scratch, nil
}

func metadataFromExtension(ext map[string]any) (*Metadata, error) {
	raw, err := yaml.Marshal(ext)
	if err != nil {
		return nil, ctferrors.Internalf(err, "re-marshal x-ctf-metadata")
	}
	var m Metadata
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, ctferrors.FailedPreconditionf("x-ctf-metadata does not match the expected schema: %v", err)
	}
	return &m, nil
}

// LoadAll iterates repo/challs/*, loading each directory as a challenge.
// Per-challenge failures are logged, counted, and dropped; the batch never
// fails as a whole, per spec.md §4.D.
func LoadAll(repo, actor string, isExport bool) ([]*Challenge, error) {
	entries, err := os.ReadDir(filepath.Join(repo, "challs"))
	if err != nil {
		return nil, ctferrors.Internalf(err, "list challenges directory")
	}

	var out []*Challenge
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		chall, err := Load(repo, e.Name(), actor, isExport)
		if err != nil {
			logger.Warn().Err(err).Str("challenge_id", e.Name()).Msg("dropping challenge that failed to load")
			metrics.ChallengeLoadFailuresTotal.WithLabelValues(e.Name()).Inc()
			continue
		}
		out = append(out, chall)
	}
	return out, nil
}
