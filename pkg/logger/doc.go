// Package logger standardises structured logging across metering services.
//
// It exposes a single factory, New, that builds a *slog.Logger from
// functional options, plus attribute constructors (Error, UserID, Resource)
// that keep field naming consistent wherever ledger activity is logged.
//
//	log := logger.New(
//	    logger.WithService("metering"),
//	    logger.WithLevel(slog.LevelDebug),
//	)
//	log.Info("package granted", logger.UserID(userID), logger.Resource(res))
package logger
