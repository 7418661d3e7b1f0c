// Package logger builds *slog.Logger instances with functional options and
// keeps attribute naming consistent across the state history packages.
//
// New picks a text or JSON handler, applies static attributes and wraps the
// result in a context handler that runs the registered ContextExtractor
// callbacks on every record, so request-scoped values such as the request id
// reach records logged deep inside a transition.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithConfig(cfg), // LOG_LEVEL, LOG_FORMAT, SERVICE_NAME
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	logger.SetAsDefault(log)
//
//	log.WarnContext(ctx, "failed to publish state event",
//	    logger.Event(statehistory.EventTransitioned),
//	    logger.Transition("post", "42", "status", "draft", "published"),
//	    logger.Error(err),
//	)
//
// # Attributes
//
// ObjectType, ObjectID, Field, Column, FromState and ToState describe the
// subject of a transition; Transition groups them. FromState logs the absence
// of a prior state as "none". Error and Errors return an empty attribute for
// nil errors, so they can be passed unconditionally.
package logger
