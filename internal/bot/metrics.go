package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchNodes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "connect4_search_nodes_total",
		Help: "Positions visited by the search",
	})

	cacheProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connect4_cache_probes_total",
		Help: "Transposition cache probes by result",
	}, []string{"result"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "connect4_search_duration_seconds",
		Help:    "Time to search one root position",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})
)
