package build

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadDockerignore reads <contextDir>/.dockerignore and returns its
// patterns in moby/patternmatcher's exclude/re-include syntax. A missing
// file is not an error: it just means no patterns.
func LoadDockerignore(contextDir string) ([]string, error) {
	f, err := os.Open(filepath.Join(contextDir, ".dockerignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}
