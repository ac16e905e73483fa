package build

import (
	"fmt"
	"path/filepath"
	"strings"

	distreference "github.com/docker/distribution/reference"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// GitSource names a git-context build (SUPPLEMENTED FEATURE: git-context
// builds, not named by spec.md's DiffCopy-only core but present in a
// complete client).
type GitSource struct {
	RepoURL string
	Token   string
	Ref     string
}

// CacheEntry is one import/export cache backend, e.g. {Type: "registry",
// Attrs: {"ref": "example.com/repo:cache"}}.
type CacheEntry struct {
	Type  string
	Attrs map[string]string
}

// Options describes one build submission: everything the build driver
// (C9) turns into frontend attributes, an exporter descriptor, and
// cache-import/export descriptors.
type Options struct {
	// ContextDir is the local build-context directory for a local build.
	// Mutually exclusive with Git.
	ContextDir string
	// Git, when set, makes this a git-context build instead of a local one.
	Git *GitSource

	Dockerfile       string
	Target           string
	Platform         string
	BuildArgs        map[string]string
	NoCache          bool
	ImageResolveMode string

	// Tags are the image references to push on success. Empty means "no
	// exporter" (a solve with no image output, e.g. --pull warmup).
	Tags             []string
	RegistryInsecure bool

	CacheImport []CacheEntry
	CacheExport []CacheEntry

	// ExcludePatterns is the .dockerignore-style exclude list applied to
	// the local context walk. Unused for git-context builds, which let
	// the daemon's own checkout apply ignore rules.
	ExcludePatterns []string
}

// contextAttr renders the "context" frontend attribute per spec.md §4.9:
// local://<absolute-path> for local builds, or
// <repo-url>[@token]#<git-ref> for git builds.
func (o *Options) contextAttr() (string, error) {
	if o.Git != nil {
		ref := o.Git.RepoURL
		if o.Git.Token != "" {
			ref += "@" + o.Git.Token
		}
		if o.Git.Ref != "" {
			ref += "#" + o.Git.Ref
		}
		return ref, nil
	}

	abs, err := filepath.Abs(o.ContextDir)
	if err != nil {
		return "", fmt.Errorf("build: resolve context dir: %w", err)
	}
	return "local://" + abs, nil
}

// frontendAttrs builds the dockerfile frontend's key→value attribute map
// per spec.md §6.
func (o *Options) frontendAttrs() (map[string]string, error) {
	ctxAttr, err := o.contextAttr()
	if err != nil {
		return nil, err
	}

	attrs := map[string]string{
		"context": ctxAttr,
	}
	if o.Dockerfile != "" {
		attrs["filename"] = o.Dockerfile
	}
	if o.Target != "" {
		attrs["target"] = o.Target
	}
	if o.Platform != "" {
		attrs["platform"] = o.Platform
	}
	if o.NoCache {
		attrs["no-cache"] = "true"
	}
	if o.ImageResolveMode != "" {
		attrs["image-resolve-mode"] = o.ImageResolveMode
	}
	for k, v := range o.BuildArgs {
		attrs["build-arg:"+k] = v
	}
	return attrs, nil
}

// exporter builds the exporter type/attrs pair, normalizing tags through
// docker/distribution/reference the same way the daemon's own CLI front
// end does before handing them to the exporter.
func (o *Options) exporter() (string, map[string]string, error) {
	if len(o.Tags) == 0 {
		return "", nil, nil
	}

	normalized := make([]string, 0, len(o.Tags))
	for _, tag := range o.Tags {
		ref, err := distreference.ParseNormalizedNamed(tag)
		if err != nil {
			return "", nil, fmt.Errorf("build: invalid image tag %q: %w", tag, err)
		}
		normalized = append(normalized, distreference.TagNameOnly(ref).String())
	}

	attrs := map[string]string{
		"name": strings.Join(normalized, ","),
		"push": "true",
	}
	if o.RegistryInsecure {
		attrs["registry.insecure"] = "true"
	} else {
		attrs["registry.insecure"] = "false"
	}
	return "image", attrs, nil
}

func cacheEntries(entries []CacheEntry) []*wire.CacheOptionsEntry {
	out := make([]*wire.CacheOptionsEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, &wire.CacheOptionsEntry{Type: e.Type, Attrs: e.Attrs})
	}
	return out
}

func (o *Options) cacheOptions() *wire.CacheOptions {
	if len(o.CacheImport) == 0 && len(o.CacheExport) == 0 {
		return nil
	}
	return &wire.CacheOptions{
		Entries: append(cacheEntries(o.CacheImport), cacheEntries(o.CacheExport)...),
	}
}
