package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthMetrics counts auth outcomes. It implements the auth service's Metrics interface.
type AuthMetrics struct {
	LoginTotal   *prometheus.CounterVec
	RefreshTotal *prometheus.CounterVec
	LogoutTotal  prometheus.Counter
	LockoutTotal prometheus.Counter
}

// NewAuthMetrics creates the auth counters and registers them with reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ztcp_auth_login_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ztcp_auth_refresh_total",
				Help: "Total number of refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		LogoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ztcp_auth_logout_total",
			Help: "Total number of sessions ended by logout",
		}),
		LockoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ztcp_auth_lockouts_total",
			Help: "Total number of accounts blocked after repeated login failures",
		}),
	}
	reg.MustRegister(m.LoginTotal, m.RefreshTotal, m.LogoutTotal, m.LockoutTotal)
	return m
}

func (m *AuthMetrics) ObserveLogin(outcome string)   { m.LoginTotal.WithLabelValues(outcome).Inc() }
func (m *AuthMetrics) ObserveRefresh(outcome string) { m.RefreshTotal.WithLabelValues(outcome).Inc() }
func (m *AuthMetrics) ObserveLogout()                { m.LogoutTotal.Inc() }
func (m *AuthMetrics) ObserveLockout()               { m.LockoutTotal.Inc() }

// JanitorMetrics counts refresh tokens purged by the janitor.
type JanitorMetrics struct {
	PurgedTotal prometheus.Counter
	RunsTotal   *prometheus.CounterVec
}

// NewJanitorMetrics creates the janitor counters and registers them with reg.
func NewJanitorMetrics(reg prometheus.Registerer) *JanitorMetrics {
	m := &JanitorMetrics{
		PurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ztcp_auth_refresh_tokens_purged_total",
			Help: "Total number of expired refresh tokens removed by the janitor",
		}),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ztcp_auth_janitor_runs_total",
				Help: "Total number of janitor sweeps by status",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(m.PurgedTotal, m.RunsTotal)
	return m
}

func (m *JanitorMetrics) ObserveSweep(purged int64, err error) {
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.PurgedTotal.Add(float64(purged))
}
