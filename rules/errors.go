//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// EnhancedErrors keeps the service packages on the categorized error builder.
// fmt.Errorf loses the category, so handlers fall back to a 500.
func EnhancedErrors(m dsl.Matcher) {
	m.Match(`fmt.Errorf($fmt, $*args)`).
		Where(m.File().PkgPath.Matches(`/internal/(annotation|anomaly|feedback|app|mqtt|notification|api/v2)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use errors.Newf($fmt, $args).Category(...).Build() from internal/errors")
}
