//go:build !netlib

package utils

// BlasImplementation names the active blas64 backend.
func BlasImplementation() string { return "gonum" }
