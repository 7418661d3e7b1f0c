// Package handler turns typed request handlers into http.HandlerFunc.
//
// A HandlerFunc receives a Context and a request struct filled by binders and
// returns a Response:
//
//	type TransitionRequest struct {
//		Type string `json:"-" path:"type"`
//		To   string `json:"to" path:"-"`
//	}
//
//	r.Post("/{type}/transitions", handler.Wrap(
//		func(ctx handler.Context, req TransitionRequest) handler.Response {
//			return handler.JSON(result)
//		},
//		handler.WithBinders[handler.Context, TransitionRequest](binder.JSON(), binder.Path(chi.URLParam)),
//	))
//
// JSON responses share one envelope, JSONResponse: data on success, an
// ErrorDetail on failure. JSONError derives status and code from the error:
// HTTPError keeps its own, validator errors answer 422 with per-field details,
// binder errors 400 and anything else 500.
package handler
