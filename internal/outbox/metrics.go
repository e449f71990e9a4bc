package outbox

import "expvar"

var (
	metricOutboxPublishedTotal = expvar.NewInt("outbox_published_total")
	metricOutboxErrorsTotal    = expvar.NewInt("outbox_errors_total")
)
