// (c) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package anchor

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type metrics struct {
	calls       *prometheus.CounterVec
	events      *prometheus.CounterVec
	queueDepth  prometheus.Gauge
	burnedNonce prometheus.Counter
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Number of anchor calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of journaled events by kind.",
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of messages between the queue head and tail.",
		}),
		burnedNonce: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meta_tx_nonce_burned_total",
			Help:      "Number of meta transaction nonces consumed by a request whose transition failed.",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.calls),
		registerer.Register(m.events),
		registerer.Register(m.queueDepth),
		registerer.Register(m.burnedNonce),
	)
	return m, errs.Err
}

func (m *metrics) observeCall(op string, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailure
	}
	m.calls.WithLabelValues(op, outcome).Inc()
}

func (m *metrics) observeEvents(events []Event) {
	for _, event := range events {
		m.events.WithLabelValues(event.Kind.String()).Inc()
	}
}
