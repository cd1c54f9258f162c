// Package scheduler triggers named background jobs on cron or fixed-interval
// schedules (robfig/cron).
//
// Each run gets a context derived from the service's base context, so Stop
// cancels in-flight runs. A run that is still going when its next trigger
// fires is skipped. Job errors and panics are logged; they never stop the
// schedule.
package scheduler
