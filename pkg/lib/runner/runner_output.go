package runner

import (
	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// Output returns the line stream of a process from its first line. The channel
// closes after the process exited and its final status is recorded.
func (runner *Runner) Output(id string) (<-chan lib.RawLine, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}

	runner.logger.Debug("subscribing to output", zap.String("invocation_id", id))
	return pe.output.Subscribe(runner.outputCapacity), nil
}
