//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingContext flags background contexts in tests. t.Context is canceled
// when the test ends, which stops the MQTT and HTTP goroutines the test
// started.
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$ctx = context.Background()`,
		`$ctx := context.TODO()`,
		`$ctx = context.TODO()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of a background context")

	m.Match(
		`$fn(context.Background(), $*args)`,
		`$fn(context.TODO(), $*args)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, pass t.Context() to $fn")
}

// AssertErrors prefers the testify error helpers so failures print the error.
func AssertErrors(m dsl.Matcher) {
	m.Match(`assert.Nil($t, $err)`, `require.Nil($t, $err)`).
		Where(m["err"].Type.Is("error")).
		Report("use NoError for error values")

	m.Match(`assert.NotNil($t, $err)`, `require.NotNil($t, $err)`).
		Where(m["err"].Type.Is("error")).
		Report("use Error for error values")

	m.Match(`assert.True($t, errors.Is($err, $target))`).
		Report("use assert.ErrorIs($t, $err, $target)").
		Suggest(`assert.ErrorIs($t, $err, $target)`)
}

// BenchmarkLoop flags the b.N loop form.
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(`for range $b.N { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... }").
		Suggest("for $b.Loop() { $body }")

	m.Match(`for $i := 0; $i < $b.N; $i++ { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... }; declare $i separately if the body needs it")
}
