package errors

import (
	"fmt"
	"testing"
)

func BenchmarkErrorCreationNoTelemetry(b *testing.B) {
	SetTelemetryReporter(nil)

	b.ReportAllocs()

	for b.Loop() {
		err := fmt.Errorf("test error")
		_ = New(err).
			Component("annotation").
			Category(CategoryDatabase).
			Build()
	}
}

func BenchmarkErrorCreationAutoDetect(b *testing.B) {
	SetTelemetryReporter(nil)

	b.ReportAllocs()

	for b.Loop() {
		_ = Newf("replace failed for %s", "INSP-001").Build()
	}
}
