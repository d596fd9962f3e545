package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	r := prometheus.NewRegistry()
	Register(r)
	// 重复注册不会 panic。
	Register(r)
	assert.Equal(t, prometheus.Registerer(r), GetRegisterer())

	MessagesDelivered.WithLabelValues(ScopeRoom).Add(2)
	CommandsTotal.WithLabelValues("nick", ResultOK).Inc()
	SessionsActive.Set(3)

	families, err := r.Gather()
	require.NoError(t, err)
	values := make(map[string]float64, len(families))
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				values[f.GetName()] += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				values[f.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(3), values["roomchat_sessions_active"])
	assert.Equal(t, float64(2), values["roomchat_messages_delivered_total"])
	assert.Equal(t, float64(1), values["roomchat_commands_total"])
}
