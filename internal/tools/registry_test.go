package tools_test

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools"

	// Import all tool packages to trigger init() registration.
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/ai"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/alerts"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/inventory"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/misconfigurations"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/query"
	_ "github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/vulnerabilities"
)

// skipPackages contains packages under internal/tools/ that do not register
// tools via init().
var skipPackages = map[string]bool{
	"testutil": true,
}

var allTools = []string{
	"get_alert",
	"get_alert_history",
	"get_alert_notes",
	"get_inventory_item",
	"get_misconfiguration",
	"get_misconfiguration_history",
	"get_misconfiguration_notes",
	"get_timestamp_range",
	"get_vulnerability",
	"get_vulnerability_history",
	"get_vulnerability_notes",
	"iso_to_unix_timestamp",
	"list_alerts",
	"list_inventory_items",
	"list_misconfigurations",
	"list_vulnerabilities",
	"powerquery",
	"purple_ai",
	"search_alerts",
	"search_inventory_items",
	"search_misconfigurations",
	"search_vulnerabilities",
}

// TestAllToolPackagesImported verifies that every tool subdirectory is
// imported above, so a new package cannot silently miss registration.
func TestAllToolPackagesImported(t *testing.T) {
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "failed to get current file path")
	toolsDir := filepath.Dir(thisFile)

	content, err := os.ReadFile(thisFile)
	require.NoError(t, err)

	entries, err := os.ReadDir(toolsDir)
	require.NoError(t, err)

	var missing []string
	for _, entry := range entries {
		if !entry.IsDir() || skipPackages[entry.Name()] {
			continue
		}
		goFiles, _ := filepath.Glob(filepath.Join(toolsDir, entry.Name(), "*.go"))
		hasCode := false
		for _, f := range goFiles {
			if !strings.HasSuffix(f, "_test.go") {
				hasCode = true
				break
			}
		}
		if !hasCode {
			continue
		}
		expected := `"github.com/robemmerson/s1-purple-mcp-sub002/internal/tools/` + entry.Name() + `"`
		if !strings.Contains(string(content), expected) {
			missing = append(missing, entry.Name())
		}
	}
	sort.Strings(missing)
	assert.Empty(t, missing, "tool packages not imported in registry_test.go")
}

func TestRegisteredTools(t *testing.T) {
	assert.Equal(t, allTools, tools.RegisteredTools())
	assert.Equal(t, allTools, tools.GetToolsForProfile(tools.ProfileAll))
}

// TestAllProfileToolsAreRegistered catches a tool named in a profile whose
// RegisterTool call is missing.
func TestAllProfileToolsAreRegistered(t *testing.T) {
	for profile, names := range tools.ProfileDefinitions {
		t.Run(profile, func(t *testing.T) {
			assert.NoError(t, tools.ValidateToolNames(names))
		})
	}
}

func TestAllRegisteredToolsAreInProfile(t *testing.T) {
	inProfile := make(map[string]bool)
	for _, names := range tools.ProfileDefinitions {
		for _, name := range names {
			inProfile[name] = true
		}
	}
	for _, name := range tools.RegisteredTools() {
		assert.True(t, inProfile[name], "tool %q is registered but not listed in any named profile", name)
	}
}

func TestProfileDefinitionsConsistency(t *testing.T) {
	for profile, names := range tools.ProfileDefinitions {
		assert.NotEmpty(t, profile)
		assert.NotEmpty(t, names, "profile %q has no tools", profile)
		seen := make(map[string]bool)
		for _, name := range names {
			assert.False(t, seen[name], "profile %q contains duplicate tool %q", profile, name)
			seen[name] = true
		}
	}
}

func TestRegisteredToolsHaveValidMetadata(t *testing.T) {
	for _, name := range tools.RegisteredTools() {
		t.Run(name, func(t *testing.T) {
			reg, ok := tools.GetTool(name)
			require.True(t, ok)
			assert.Equal(t, name, reg.Name)
			assert.Equal(t, name, reg.Schema.Name, "schema name must match the registration")
			assert.NotEmpty(t, reg.Description)
			assert.NotEmpty(t, reg.Schema.Description)
			assert.NotNil(t, reg.Handler)
		})
	}
}

func TestValidateToolNames(t *testing.T) {
	err := tools.ValidateToolNames([]string{"get_alert", "launch_missiles", "nope"})
	require.Error(t, err)
	assert.Equal(t, "unknown tools: launch_missiles, nope", err.Error())
}

func TestAddToolsToServer(t *testing.T) {
	tests := []struct {
		profile string
		want    int
		wantErr string
	}{
		{profile: "all", want: 22},
		{profile: "core", want: 6},
		{profile: "posture", want: 11},
		{profile: "analytics", want: 4},
		{profile: "missing", wantErr: `profile "missing" has no tools`},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			s := server.NewMCPServer("test", "0.0.0", server.WithToolCapabilities(false))
			n, err := tools.AddToolsToServer(s, tt.profile, &tools.Backends{}, nil, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func getProjectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..")
}

// TestProfileDefinitionsMatchYAML keeps the built-in profiles in sync with
// configs/profiles.yaml.
func TestProfileDefinitionsMatchYAML(t *testing.T) {
	yamlProfiles, err := tools.LoadProfiles(filepath.Join(getProjectRoot(), "configs", "profiles.yaml"))
	require.NoError(t, err)

	require.Len(t, yamlProfiles, len(tools.ProfileDefinitions))
	for profile, names := range yamlProfiles {
		code, ok := tools.ProfileDefinitions[profile]
		require.True(t, ok, "profile %q exists in profiles.yaml only", profile)
		assert.ElementsMatch(t, code, names, "profile %q differs", profile)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	profiles, err := tools.LoadProfiles(write("ok.yaml", "triage:\n  - get_alert\n  - search_alerts\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"triage": {"get_alert", "search_alerts"}}, profiles)

	_, err = tools.LoadProfiles(write("all.yaml", "all:\n  - get_alert\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")

	_, err = tools.LoadProfiles(write("empty.yaml", "triage: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no tools")

	_, err = tools.LoadProfiles(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}
