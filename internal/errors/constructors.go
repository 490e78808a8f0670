package errors

import "fmt"

// Error codes that callers are expected to inspect with IsCode.
const (
	CodeCostLimitExceeded    = "cost_limit_exceeded"
	CodeMaxIterationsReached = "max_iterations_reached"
	CodeLLMTimeout           = "llm_timeout"
	CodeTurnInProgress       = "turn_in_progress"
	CodeSessionReset         = "session_reset"
	CodeToolPermissionDenied = "tool_permission_denied"
	CodeApprovalResolved     = "approval_already_resolved"
)

// LLMRequestFailed creates an error for when a model request fails.
func LLMRequestFailed(cause error) *VibeError {
	return &VibeError{
		Category:  CategoryLLM,
		Code:      "llm_request_failed",
		Message:   "model request failed",
		Retryable: true,
		Cause:     cause,
	}
}

// LLMTimeout creates an error for when a model request exceeds its deadline.
// Kept distinct from LLMRequestFailed so the caller can tell a timeout from
// a network failure.
func LLMTimeout(timeout string, cause error) *VibeError {
	return &VibeError{
		Category:  CategoryLLM,
		Code:      CodeLLMTimeout,
		Message:   fmt.Sprintf("model request timed out after %s", timeout),
		Retryable: true,
		Cause:     cause,
	}
}

// ToolNotFound creates an error for when a requested tool does not exist.
func ToolNotFound(name string) *VibeError {
	return &VibeError{
		Category:  CategoryTool,
		Code:      "tool_not_found",
		Message:   fmt.Sprintf("tool %q not found", name),
		Retryable: false,
	}
}

// ToolExecutionFailed creates an error for when a tool execution fails.
// Retryability depends on the underlying cause.
func ToolExecutionFailed(name string, cause error) *VibeError {
	return &VibeError{
		Category:  CategoryTool,
		Code:      "tool_execution_failed",
		Message:   fmt.Sprintf("tool %q execution failed", name),
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// ToolPermissionDenied creates an error for when a tool is excluded by policy.
func ToolPermissionDenied(name string) *VibeError {
	return &VibeError{
		Category:  CategoryApproval,
		Code:      CodeToolPermissionDenied,
		Message:   fmt.Sprintf("tool %q is disabled by policy", name),
		Retryable: false,
	}
}

// ApprovalAlreadyResolved creates an error for a decision applied to a call
// that already reached a terminal state.
func ApprovalAlreadyResolved(callID string) *VibeError {
	return &VibeError{
		Category:  CategoryApproval,
		Code:      CodeApprovalResolved,
		Message:   fmt.Sprintf("approval for call %q was already resolved", callID),
		Retryable: false,
	}
}

// CostLimitExceeded creates the turn-fatal error for a breached spend ceiling.
func CostLimitExceeded(total, limit float64) *VibeError {
	return &VibeError{
		Category:  CategoryBudget,
		Code:      CodeCostLimitExceeded,
		Message:   fmt.Sprintf("price limit exceeded: $%.4f > $%.2f", total, limit),
		Retryable: false,
	}
}

// MaxIterationsReached creates an error for when the turn loop exceeds its iteration limit.
func MaxIterationsReached(iterations int) *VibeError {
	return &VibeError{
		Category:  CategoryEngine,
		Code:      CodeMaxIterationsReached,
		Message:   fmt.Sprintf("turn exceeded %d tool-call iterations", iterations),
		Retryable: false,
	}
}

// TurnInProgress creates the session-fatal error for a second concurrent Run.
func TurnInProgress(sessionID string) *VibeError {
	return &VibeError{
		Category:  CategorySession,
		Code:      CodeTurnInProgress,
		Message:   fmt.Sprintf("session %s already has a turn in progress", sessionID),
		Retryable: false,
	}
}

// SessionReset creates the turn-fatal error for a turn whose session was
// replaced underneath it by a reset.
func SessionReset(sessionID string) *VibeError {
	return &VibeError{
		Category:  CategorySession,
		Code:      CodeSessionReset,
		Message:   fmt.Sprintf("session %s was reset while the turn was running", sessionID),
		Retryable: false,
	}
}

// ConfigLoadFailed creates an error for when configuration loading fails.
func ConfigLoadFailed(path string, cause error) *VibeError {
	return &VibeError{
		Category:  CategoryConfig,
		Code:      "config_load_failed",
		Message:   fmt.Sprintf("failed to load config from %q", path),
		Retryable: false,
		Cause:     cause,
	}
}
