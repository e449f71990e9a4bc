package arena

import "expvar"

var (
	metricTickTotal        = expvar.NewInt("arena_tick_total")
	metricTickSkippedTotal = expvar.NewInt("arena_tick_skipped_total")
	metricTickSlotErrors   = expvar.NewInt("arena_tick_slot_errors_total")

	metricMatchCreatedTotal   = expvar.NewInt("arena_match_created_total")
	metricMatchResolvedTotal  = expvar.NewInt("arena_match_resolved_total")
	metricMatchForfeitedTotal = expvar.NewInt("arena_match_forfeited_total")
	metricResolveErrors       = expvar.NewInt("arena_resolve_errors_total")

	metricInterventionTotal = expvar.NewInt("arena_intervention_total")
	metricPredictionTotal   = expvar.NewInt("arena_prediction_total")
	metricCheerTotal        = expvar.NewInt("arena_cheer_total")
	metricVoteTotal         = expvar.NewInt("arena_vote_total")
	metricRematchTotal      = expvar.NewInt("arena_rematch_total")
	metricRecapErrors       = expvar.NewInt("arena_recap_errors_total")
)
