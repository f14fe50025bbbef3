package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danderssonsario/oauth-openid-graphql-rest/internal/container"
)

// ContainerMetrics counts service container resolutions by name and lifetime.
type ContainerMetrics struct {
	ResolutionsTotal *prometheus.CounterVec
}

// NewContainerMetrics creates and registers container metrics on the given registry.
func NewContainerMetrics(reg prometheus.Registerer) *ContainerMetrics {
	m := &ContainerMetrics{
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "resolutions_total",
			Help:      "Total service container resolutions.",
		}, []string{"service", "lifetime"}),
	}

	reg.MustRegister(m.ResolutionsTotal)
	return m
}

// Observer adapts the metrics to the container's resolution callback.
func (m *ContainerMetrics) Observer() func(name string, lifetime container.Lifetime) {
	return func(name string, lifetime container.Lifetime) {
		m.ResolutionsTotal.WithLabelValues(name, string(lifetime)).Inc()
	}
}
