package env

import (
	"fmt"
	"github.com/ValentinKolb/envstore/lib/env/backend"
	"github.com/VictoriaMetrics/metrics"
	"io"
)

// loadTotal counts finished loads. Loads that fell back to the defaults have
// an empty location.
func loadTotal(loc backend.Location, result string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`envstore_load_total{location=%q,result=%q}`, orNone(string(loc)), result)).Inc()
	if result == "default" {
		metrics.GetOrCreateCounter(`envstore_default_fallback_total`).Inc()
	}
}

// WriteMetrics writes all envstore counters in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
