// Package validator builds request validation from small Rule values.
//
// Each rule pairs a Check func with the ValidationError reported when the
// check fails. Apply evaluates rules in order and aggregates every failure
// into ValidationErrors, which implements error:
//
//	err := validator.Apply(
//		validator.RequiredString("to", req.To),
//		validator.MaxLenString("to", req.To, 255),
//	)
//	if validator.IsValidationError(err) {
//		fields := validator.ExtractValidationErrors(err).Fields()
//	}
//
// Messages carry a translation key and values so transports can localise them.
package validator
