package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDockerignoreMissing(t *testing.T) {
	patterns, err := LoadDockerignore(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, patterns)
}

func TestLoadDockerignoreParsesPatterns(t *testing.T) {
	dir := t.TempDir()
	content := "# comment\n\nnode_modules\n!node_modules/keep-me\n  .git  \n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dockerignore"), []byte(content), 0o644))

	patterns, err := LoadDockerignore(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"node_modules", "!node_modules/keep-me", ".git"}, patterns)
}
