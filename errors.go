package graphtune

import "errors"

// Sentinel errors for configuration and backend resolution.
var (
	// ErrConfigNotFound is returned when no config file exists between the
	// starting directory and the filesystem root.
	ErrConfigNotFound = errors.New("graphtune: config file not found")

	// ErrUnknownBackend is returned when no factory is registered under the
	// requested backend name.
	ErrUnknownBackend = errors.New("graphtune: unknown backend")

	// ErrNoTransactionSupport is returned when a backend cannot begin
	// explicit transactions.
	ErrNoTransactionSupport = errors.New("graphtune: backend does not support transactions")

	// ErrNoProfileSupport is returned when a backend cannot capture
	// execution plans.
	ErrNoProfileSupport = errors.New("graphtune: backend does not support plan capture")

	// ErrNoAdminSupport is returned when a backend cannot perform
	// administrative operations.
	ErrNoAdminSupport = errors.New("graphtune: backend does not support admin operations")
)

// Sentinel errors for playbook loading and validation.
var (
	// ErrEmptyPlaybook is returned when a playbook declares no stages.
	ErrEmptyPlaybook = errors.New("playbook: no stages")

	// ErrDuplicateStep is returned when two steps in a stage share a name.
	ErrDuplicateStep = errors.New("playbook: duplicate step name")

	// ErrEmptyCypher is returned when a step has no statement body.
	ErrEmptyCypher = errors.New("playbook: step has no cypher")

	// ErrBadExpectation is returned when an expect condition fails to compile.
	ErrBadExpectation = errors.New("playbook: expectation does not compile")

	// ErrRollbackProfile is returned when a step asks for both rollback and
	// plan capture; plans are captured outside explicit transactions.
	ErrRollbackProfile = errors.New("playbook: rollback steps cannot capture plans")

	// ErrUnknownStage is returned when a stage filter names a stage that
	// does not exist in the playbook.
	ErrUnknownStage = errors.New("playbook: unknown stage")
)
