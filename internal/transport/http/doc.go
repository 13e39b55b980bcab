// Package http implements the HTTP handlers of the analysis service.
//
// Handlers are thin: they decode and validate requests, call a service and
// render the result with chi/render. Every error goes through
// errors.ErrorHandler and reaches the client as RFC 7807 problem details:
//
//	{
//	    "type": "/errors/analysis/already-running",
//	    "title": "Conflict",
//	    "status": 409,
//	    "detail": "An analysis is already running",
//	    "instance": "/api/analyses"
//	}
//
// Routes are assembled in package app.
package http
