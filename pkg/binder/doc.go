// Package binder fills request structs from HTTP requests.
//
// Every binder has the signature func(r *http.Request, v any) error and only
// touches the fields its source describes, so several can run on one struct:
//
//	type TransitionRequest struct {
//		Type  string `json:"-" path:"type"`
//		To    string `json:"to" path:"-"`
//		Limit int    `json:"-" path:"-" query:"limit"`
//	}
//
//	handler.Wrap(h, handler.WithBinders[handler.Context, TransitionRequest](
//		binder.JSON(),
//		binder.Path(chi.URLParam),
//		binder.Query(),
//	))
//
// Path and Query read the `path` and `query` tags; `-` skips a field and an
// untagged field binds to its lowercased name. Supported kinds are strings,
// integers, floats and bools, pointers to them and slices (repeated or
// comma-separated values).
//
// Failures wrap one of ErrMissingContentType, ErrUnsupportedMediaType,
// ErrFailedToParseJSON, ErrFailedToParseQuery or ErrFailedToParsePath.
package binder
