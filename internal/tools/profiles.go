package tools

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadProfiles loads profile definitions from a YAML file
func LoadProfiles(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	profiles := make(map[string][]string)
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse profiles YAML: %w", err)
	}

	if _, ok := profiles[ProfileAll]; ok {
		return nil, fmt.Errorf("profile %q is reserved", ProfileAll)
	}
	for name, names := range profiles {
		if len(names) == 0 {
			return nil, fmt.Errorf("profile %q has no tools", name)
		}
	}

	return profiles, nil
}

// UseProfilesFile replaces ProfileDefinitions with the profiles in path.
func UseProfilesFile(path string) error {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return err
	}
	ProfileDefinitions = profiles
	return nil
}

// init loads the bundled profiles file when it ships next to the binary or
// in the working directory
func init() {
	profilePath := findProfilesFile()
	if profilePath == "" {
		return
	}

	profiles, err := LoadProfiles(profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load profiles from %s: %v\n", profilePath, err)
		fmt.Fprintf(os.Stderr, "Using default profile definitions\n")
		return
	}

	ProfileDefinitions = profiles
}

// findProfilesFile searches for the profiles.yaml file in common locations
func findProfilesFile() string {
	locations := []string{
		"configs/profiles.yaml",
		filepath.Join(getExecutableDir(), "configs", "profiles.yaml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// getExecutableDir returns the directory containing the executable
func getExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}
