// Package render recursively materializes a challenge directory for a
// specific actor, per spec.md §4.B. Template files are rendered with Go's
// text/template engine extended with a "js" function that evaluates a
// snippet in a fresh pkg/sandbox Sandbox pre-loaded with every helper script
// from the challenge's _helpers/ directory — the Go analogue of the
// original's Tera-plus-boa_engine renderer (loader/tera.rs).
package render

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/flagforge/ctfmanager/pkg/ctferrors"
	"github.com/flagforge/ctfmanager/pkg/sandbox"
)

// TemplateSuffix marks a file as needing rendering; the suffix is stripped
// from the destination filename.
const TemplateSuffix = ".tpl"

// HelperDir is the root-level directory whose *.js files are loaded into the
// sandbox's global scope before any template in the tree is rendered.
const HelperDir = "_helpers"

// Context is the data every template is executed with. Helper scripts and
// "js" snippets do not receive it; no state reaches the sandbox.
type Context struct {
	Actor    string
	IsExport bool
}

// Tree recursively copies src to dst, rendering *.tpl files and byte-copying
// everything else. Every visited path is canonicalized and checked for
// containment within src; escaping paths (via symlink or "..") fail with a
// PathEscape error.
func Tree(src, dst string, ctx Context) error {
	srcRoot, err := filepath.Abs(src)
	if err != nil {
		return ctferrors.Internalf(err, "resolve source root")
	}
	srcRoot, err = filepath.EvalSymlinks(srcRoot)
	if err != nil {
		return ctferrors.Internalf(err, "canonicalize source root")
	}

	sb := sandbox.New()
	if err := loadHelpers(sb, filepath.Join(srcRoot, HelperDir)); err != nil {
		return err
	}

	tmplFuncs := template.FuncMap{
		"js": func(body string) (string, error) {
			v, err := sb.VM().RunString(body)
			if err != nil {
				return "", ctferrors.ScriptErrorf("helper script: %v", err)
			}
			return v.String(), nil
		},
	}

	return filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return ctferrors.Internalf(err, "walk %s", path)
		}

		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return ctferrors.Internalf(err, "relativize %s", path)
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		if rel == HelperDir || strings.HasPrefix(rel, HelperDir+string(filepath.Separator)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if err := assertContained(srcRoot, path); err != nil {
			return err
		}

		destPath := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}

		if strings.HasSuffix(path, TemplateSuffix) {
			return renderFile(path, strings.TrimSuffix(destPath, TemplateSuffix), ctx, tmplFuncs)
		}
		return copyFile(path, destPath)
	})
}

// assertContained re-canonicalizes path and checks it still lives under root,
// catching a symlink that escapes the source tree after the initial walk.
func assertContained(root, path string) error {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		// A dangling symlink: not containment-unsafe, just unreadable later.
		resolved = path
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ctferrors.BadArgumentf("PathEscape: %s escapes source root %s", path, root)
	}
	return nil
}

func loadHelpers(sb *sandbox.Sandbox, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return ctferrors.Internalf(err, "read helper directory %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".js" {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return ctferrors.Internalf(err, "read helper %s", e.Name())
		}
		if err := sb.EvalGlobal(string(body)); err != nil {
			return fmt.Errorf("helper %s: %w", e.Name(), err)
		}
	}
	return nil
}

func renderFile(src, dest string, ctx Context, funcs template.FuncMap) error {
	body, err := os.ReadFile(src)
	if err != nil {
		return ctferrors.Internalf(err, "read template %s", src)
	}

	tmpl, err := template.New(filepath.Base(src)).Funcs(funcs).Parse(string(body))
	if err != nil {
		return ctferrors.ScriptErrorf("parse template %s: %v", src, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return ctferrors.ScriptErrorf("render template %s: %v", src, err)
	}

	return os.WriteFile(dest, buf.Bytes(), 0o644)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return ctferrors.Internalf(err, "open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return ctferrors.Internalf(err, "stat %s", src)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return ctferrors.Internalf(err, "create %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return ctferrors.Internalf(err, "copy %s", src)
	}
	return nil
}
