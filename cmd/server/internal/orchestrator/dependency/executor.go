package dependency

import "context"

// DependencyExecutor executes external commands in one of the supported
// modes.
//
// Implementations:
//   - LocalExecutor: exec.Command on this host
//   - RemoteExecutor: POST to deps-service /api/v1/execute
//   - FallbackExecutor: remote first, local after a network failure
type DependencyExecutor interface {
	// ExecuteCommand runs req. A non-zero exit code is reported through
	// CommandResponse; the error is reserved for failures to run at all
	// (binary missing, timeout, transport error).
	//
	// Cancelling ctx terminates the command.
	ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error)

	// HealthCheck verifies that the executor is ready to handle requests.
	HealthCheck(ctx context.Context) error
}
