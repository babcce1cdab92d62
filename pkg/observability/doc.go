// Package observability wires the bot's operational surface: structured
// logrus logging, Prometheus metrics, liveness/readiness probes over the
// upstream dependencies, and graceful shutdown coordination.
//
// The health server runs on its own port so probes keep answering while
// the Telegram polling loop is busy or draining.
package observability
