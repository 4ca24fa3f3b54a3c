package agent

// MCP method and notification constants.
// These are the standard MCP protocol method names used across the package.
const (
	// notificationToolsListChanged is sent when the server's tool list changes
	notificationToolsListChanged = "notifications/tools/list_changed"

	// notificationResourcesListChanged is sent when the server's resource list changes
	notificationResourcesListChanged = "notifications/resources/list_changed"

	// notificationPromptsListChanged is sent when the server's prompt list changes
	notificationPromptsListChanged = "notifications/prompts/list_changed"
)

// Names of the MCP tools exposed in server mode.
const (
	toolListTools        = "list_tools"
	toolListResources    = "list_resources"
	toolListPrompts      = "list_prompts"
	toolDescribeTool     = "describe_tool"
	toolDescribeResource = "describe_resource"
	toolDescribePrompt   = "describe_prompt"
	toolCallTool         = "call_tool"
	toolGetResource      = "get_resource"
	toolGetPrompt        = "get_prompt"
	toolReason           = "reason"
	toolDiagnose         = "diagnose"
)
