package policy

// ToolGroups defines named groups of tools for easier policy configuration.
// Group names use the "group:" prefix to distinguish them from tool names.
// Every tool listed here is registered somewhere in this tree; there is no
// group for a tool this runtime doesn't ship.
var ToolGroups = map[string][]string{
	// Filesystem tools - read/write/modify/search files and the workspace.
	"group:fs": {"read", "write", "edit", "apply_patch", "glob", "grep"},

	// Runtime/execution tools - run shell commands and manage processes.
	"group:runtime": {"exec", "process"},

	// Web tools - fetch content from the web.
	"group:web": {"web_fetch"},

	// Todo tools - the structured task list the agent plans with.
	"group:todo": {"todo_write", "todo_read"},

	// Subagent tools - spawn and manage nested agent runs.
	"group:subagent": {"spawn_subagent", "subagent_status", "subagent_cancel"},

	// Session tools - inspect the running session itself.
	"group:session": {"compaction_status"},

	// All built-in agentcore tools.
	"group:agentcore": {
		"read", "write", "edit", "apply_patch", "glob", "grep",
		"exec", "process",
		"web_fetch",
		"todo_write", "todo_read",
		"spawn_subagent", "subagent_status", "subagent_cancel",
		"compaction_status",
	},

	// Read-only tools - safe tools that don't modify workspace or session state.
	"group:readonly": {
		"read", "glob", "grep",
		"web_fetch",
		"todo_read",
		"subagent_status",
		"compaction_status",
	},
}

// ToolProfiles defines pre-configured tool sets for common use cases.
// These map profile names to policies with their allowed tool groups.
var ToolProfiles = map[string]*Policy{
	// Coding profile - full development capabilities: filesystem, runtime,
	// web research, todo tracking, and subagent delegation.
	"coding": {
		Profile: ProfileCoding,
		Allow: []string{
			"group:fs",
			"group:runtime",
			"group:web",
			"group:todo",
			"group:subagent",
			"group:session",
		},
	},

	// Readonly profile - observation only, no modifications.
	"readonly": {
		Allow: []string{
			"group:readonly",
		},
	},

	// Full profile - everything allowed (except explicit denies).
	"full": {
		Profile: ProfileFull,
	},

	// Minimal profile - session introspection only.
	"minimal": {
		Profile: ProfileMinimal,
		Allow:   []string{"compaction_status"},
	},
}

// ExpandGroups expands group references in a tool list to their constituent tools.
// It handles:
//   - Group references (e.g., "group:fs" -> ["read", "write", "edit", "apply_patch", "glob", "grep"])
//   - Direct tool names (passed through unchanged)
//   - Deduplication of results
//
// Example:
//
//	ExpandGroups([]string{"group:fs", "web_fetch"})
//	// Returns: ["read", "write", "edit", "apply_patch", "glob", "grep", "web_fetch"]
func ExpandGroups(items []string) []string {
	var result []string
	seen := make(map[string]bool)

	for _, item := range items {
		// Check if it's a group reference
		if tools, ok := ToolGroups[item]; ok {
			for _, tool := range tools {
				if !seen[tool] {
					seen[tool] = true
					result = append(result, tool)
				}
			}
			continue
		}

		// Regular tool name
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}

// GetProfilePolicy returns the policy for a named profile.
// Returns nil if the profile doesn't exist.
func GetProfilePolicy(name string) *Policy {
	return ToolProfiles[name]
}

// ListGroups returns all available group names.
func ListGroups() []string {
	groups := make([]string, 0, len(ToolGroups))
	for name := range ToolGroups {
		groups = append(groups, name)
	}
	return groups
}

// ListProfiles returns all available profile names.
func ListProfiles() []string {
	profiles := make([]string, 0, len(ToolProfiles))
	for name := range ToolProfiles {
		profiles = append(profiles, name)
	}
	return profiles
}

// IsGroup returns true if the name is a valid group reference.
func IsGroup(name string) bool {
	_, ok := ToolGroups[name]
	return ok
}

// GetGroupTools returns the tools in a group, or nil if the group doesn't exist.
func GetGroupTools(name string) []string {
	tools, ok := ToolGroups[name]
	if !ok {
		return nil
	}
	// Return a copy to prevent modification
	result := make([]string, len(tools))
	copy(result, tools)
	return result
}

// init ensures ToolGroups is synchronized with DefaultGroups
func init() {
	// Copy ToolGroups to DefaultGroups for backwards compatibility
	for name, tools := range ToolGroups {
		DefaultGroups[name] = tools
	}
}
