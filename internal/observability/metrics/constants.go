// Package metrics provides the Prometheus collectors for thermalwatch components.
package metrics

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Annotation operation labels.
const (
	OpReplace   = "replace"
	OpDeleteAll = "delete_all"
	OpCount     = "count"
	OpList      = "list"
)

// Histogram bucket parameters.
const (
	BucketStart1ms = 0.001
	BucketFactor2  = 2
	BucketCount12  = 12
	BucketCount16  = 16
)
