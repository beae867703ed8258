package lifecycle

import "context"

// Phase orders shutdown: every hook of a lower phase finishes before the next phase starts.
type Phase int

const (
	// PhaseIngress stops accepting updates and HTTP traffic.
	PhaseIngress Phase = iota
	// PhaseDrain waits for in-flight work such as queued operator alerts.
	PhaseDrain
	// PhaseResources closes clients and connections.
	PhaseResources
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
