// File: metrics/metrics.go
//
// Collector is the observability hook the medium reports through. Ring
// overflow is silent, policy-driven loss, so the drop counter here is the
// one place that loss becomes visible.

package metrics

// Collector receives propagation observations from a medium.
type Collector interface {
	// ObserveBroadcast records bytes fanned out into target rings.
	ObserveBroadcast(bytes int)
	// ObserveDrop records bytes lost to ring overflow backpressure.
	ObserveDrop(bytes int)
	// ObserveServiced records endpoints serviced in one propagation cycle.
	ObserveServiced(endpoints int)
	// ObserveTransportError records an endpoint disconnected for a
	// transport failure.
	ObserveTransportError()
	// ObserveEndpoints tracks attach/detach (+1/-1) of endpoints.
	ObserveEndpoints(delta int)
}

// Noop is the default collector; it discards everything.
type Noop struct{}

var _ Collector = Noop{}

func (Noop) ObserveBroadcast(int)   {}
func (Noop) ObserveDrop(int)        {}
func (Noop) ObserveServiced(int)    {}
func (Noop) ObserveTransportError() {}
func (Noop) ObserveEndpoints(int)   {}
