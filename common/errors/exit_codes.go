package errors

type ExitCode int

const (
	// Process exit codes of the dtree binaries.
	SuccessExitCode ExitCode = 0

	UsageExitCode = 64

	ConfigurationFailureExitCode = 70
	TransportFailureExitCode     = 71
	LogicFailureExitCode         = 72

	// The run finished but items were lost or handed out twice.
	ConservationFailureExitCode = 80
)
