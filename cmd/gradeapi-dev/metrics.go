package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/gradeclient/internal/fakeapi"
)

// metricsHandler exposes the fake service counters so a client run can be
// checked for how many renewals it actually issued.
func metricsHandler(api *fakeapi.Server) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gradeapi",
			Name:      "requests_total",
			Help:      "Requests served by the grade service.",
		}, func() float64 { return float64(api.Requests()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "gradeapi",
			Name:      "refresh_requests_total",
			Help:      "Token renewal requests served.",
		}, func() float64 { return float64(api.RefreshCalls()) }),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
