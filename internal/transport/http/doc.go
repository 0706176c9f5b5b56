// Package http implements the HTTP handlers of the GC quality service. It is
// a thin layer between the chi router and the analysis service: handlers
// decode and validate requests, call the service and render JSON.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → AnalysisService → Engine / Store
//
// # Error Handling
//
// All errors are rendered by errors.ErrorHandler as RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/analysis/empty-experiment",
//	    "title": "Empty Experiment",
//	    "status": 422,
//	    "detail": "the experiment contains no samples",
//	    "instance": "/api/v1/experiments/analyze"
//	}
//
// # Testing
//
// Handlers are tested with httptest against a real AnalysisService backed by
// an in-memory store, so status mapping is exercised end to end.
package http
