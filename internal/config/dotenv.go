package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadDotEnv reads .env files next to the config file and in the working
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) error {
	var files []string
	seen := map[string]struct{}{}
	for _, dir := range []string{configDir, "."} {
		if dir == "" {
			continue
		}
		candidate, err := filepath.Abs(filepath.Join(dir, ".env"))
		if err != nil {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			files = append(files, candidate)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
