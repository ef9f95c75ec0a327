// Package errors provides the structured error type used by clientengine
// collaborators to reject settings.
//
// Errors carry a machine-readable ErrorCode, the offending setting and an
// optional cause. The engine factory never translates these errors: a caller
// receives exactly the *AppError the transport produced.
package errors
