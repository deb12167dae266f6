/*
Package log provides structured logging for ctfmanager using zerolog.

It wraps zerolog to give every component a consistently shaped JSON log line,
with the global logger initialized once at process startup via Init and
per-component loggers derived with WithComponent, WithActor, WithChallengeID,
and WithInstanceID so that log aggregation can filter by any of them.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("compose")
	logger.Info().Str("challenge_id", id).Msg("translated compose document")
*/
package log
