package agent

import "errors"

var (
	// ErrInvalidTool indicates a tool that cannot be registered.
	ErrInvalidTool = errors.New("invalid tool")

	// ErrDuplicateTool indicates two tools registered under one name.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrGeneratorRequired indicates the agent was built without a generator.
	ErrGeneratorRequired = errors.New("generator is required")

	// ErrSessionsRequired indicates the agent was built without session storage.
	ErrSessionsRequired = errors.New("session repository is required")
)
