package monitoring

import "github.com/GriffinCanCode/evalmachine/internal/script/env"

// Observer feeds environment lifecycle events into the metrics.
type Observer struct {
	m *Metrics
}

var _ env.Observer = (*Observer)(nil)

// Observer returns an env.Observer backed by m.
func (m *Metrics) Observer() *Observer {
	return &Observer{m: m}
}

func (o *Observer) EnvironmentCreated(*env.Environment) {
	o.m.EnvironmentsCreated.Inc()
	o.m.EnvironmentsLive.Inc()
	o.m.mu.Lock()
	o.m.snapshot.LiveEnvironments++
	o.m.mu.Unlock()
}

func (o *Observer) EnvironmentEntered(_ *env.Environment, depth int) {
	o.m.StackDepth.Set(float64(depth))
}

func (o *Observer) EnvironmentExited(_ *env.Environment, depth int) {
	o.m.StackDepth.Set(float64(depth))
}

func (o *Observer) EnvironmentDetached(*env.Environment) {}

func (o *Observer) EnvironmentDisposed(*env.Environment) {
	o.m.EnvironmentsDisposed.Inc()
	o.m.EnvironmentsLive.Dec()
	o.m.mu.Lock()
	o.m.snapshot.LiveEnvironments--
	o.m.mu.Unlock()
}
