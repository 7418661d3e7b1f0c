// Package stateapi serves state queries and transitions over HTTP with chi.
//
// Mount the router returned by Handler.Routes under any prefix:
//
//	r := chi.NewRouter()
//	r.Mount("/states", stateapi.NewHandler(states).Routes())
//
// Requests are bound with package binder, checked with package validator and
// answered through package handler, so every body uses the handler.JSONResponse
// envelope. Engine errors carry a stable code: unknown fields and missing
// objects answer 404, rejected or stale transitions 409, guard refusals 403
// (a guard's own error becomes the message), malformed requests 400 and
// invalid input 422. A failing effect answers 500 with code effect_failed even
// though the transition itself was committed.
package stateapi
