// Package errors renders HTTP errors as RFC 7807 problem details.
//
// Handlers return or pass an *APIError to ErrorHandler.HandleError; any
// other error becomes a generic 500 without leaking its message.
package errors
