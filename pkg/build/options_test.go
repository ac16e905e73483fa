package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextAttrLocal(t *testing.T) {
	opts := &Options{ContextDir: "."}
	attr, err := opts.contextAttr()
	require.NoError(t, err)
	assert.Regexp(t, "^local://", attr)
}

func TestContextAttrGit(t *testing.T) {
	opts := &Options{Git: &GitSource{RepoURL: "https://github.com/example/repo.git", Token: "tok", Ref: "main"}}
	attr, err := opts.contextAttr()
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/example/repo.git@tok#main", attr)
}

func TestContextAttrGitNoTokenNoRef(t *testing.T) {
	opts := &Options{Git: &GitSource{RepoURL: "https://github.com/example/repo.git"}}
	attr, err := opts.contextAttr()
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/example/repo.git", attr)
}

func TestFrontendAttrs(t *testing.T) {
	opts := &Options{
		ContextDir:       ".",
		Dockerfile:       "Dockerfile.prod",
		Target:           "final",
		Platform:         "linux/amd64",
		NoCache:          true,
		ImageResolveMode: "local",
		BuildArgs:        map[string]string{"VERSION": "1.2.3"},
	}

	attrs, err := opts.frontendAttrs()
	require.NoError(t, err)
	assert.Equal(t, "Dockerfile.prod", attrs["filename"])
	assert.Equal(t, "final", attrs["target"])
	assert.Equal(t, "linux/amd64", attrs["platform"])
	assert.Equal(t, "true", attrs["no-cache"])
	assert.Equal(t, "local", attrs["image-resolve-mode"])
	assert.Equal(t, "1.2.3", attrs["build-arg:VERSION"])
	assert.Regexp(t, "^local://", attrs["context"])
}

func TestFrontendAttrsMinimal(t *testing.T) {
	opts := &Options{ContextDir: "."}
	attrs, err := opts.frontendAttrs()
	require.NoError(t, err)
	_, hasFilename := attrs["filename"]
	assert.False(t, hasFilename)
	_, hasNoCache := attrs["no-cache"]
	assert.False(t, hasNoCache)
}

func TestExporterNoTags(t *testing.T) {
	opts := &Options{}
	typ, attrs, err := opts.exporter()
	require.NoError(t, err)
	assert.Empty(t, typ)
	assert.Nil(t, attrs)
}

func TestExporterWithTags(t *testing.T) {
	opts := &Options{Tags: []string{"example.com/repo:latest"}}
	typ, attrs, err := opts.exporter()
	require.NoError(t, err)
	assert.Equal(t, "image", typ)
	assert.Equal(t, "example.com/repo:latest", attrs["name"])
	assert.Equal(t, "true", attrs["push"])
	assert.Equal(t, "false", attrs["registry.insecure"])
}

func TestExporterInsecureRegistry(t *testing.T) {
	opts := &Options{Tags: []string{"example.com/repo:latest"}, RegistryInsecure: true}
	_, attrs, err := opts.exporter()
	require.NoError(t, err)
	assert.Equal(t, "true", attrs["registry.insecure"])
}

func TestExporterInvalidTag(t *testing.T) {
	opts := &Options{Tags: []string{"UPPERCASE/not/allowed"}}
	_, _, err := opts.exporter()
	require.Error(t, err)
}

func TestCacheOptionsNilWhenEmpty(t *testing.T) {
	opts := &Options{}
	assert.Nil(t, opts.cacheOptions())
}

func TestCacheOptionsMerged(t *testing.T) {
	opts := &Options{
		CacheImport: []CacheEntry{{Type: "registry", Attrs: map[string]string{"ref": "example.com/repo:cache"}}},
		CacheExport: []CacheEntry{{Type: "inline"}},
	}
	cache := opts.cacheOptions()
	require.NotNil(t, cache)
	assert.Len(t, cache.Entries, 2)
}
