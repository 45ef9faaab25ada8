// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components take a *zap.Logger; a *Logger embeds one, so pass
// logger.Logger or a Named child:
//
//	logger := logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	machine := evalmachine.New(evalmachine.WithLogger(logger.Named("machine").Logger))
//	logger.Info("Server starting", zap.String("port", "8000"))
package logging
