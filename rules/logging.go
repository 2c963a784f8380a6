//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StructuredLogFields flags messages built with fmt. Values belong in
// logger fields so they stay queryable.
//
//	log.Error(fmt.Sprintf("save failed for %s", id))
//
// becomes
//
//	log.Error("save failed", logger.String("inspection_id", id))
func StructuredLogFields(m dsl.Matcher) {
	m.Import("github.com/gridsight/thermalwatch/internal/logger")

	m.Match(
		`$log.Debug(fmt.Sprintf($*_), $*_)`,
		`$log.Info(fmt.Sprintf($*_), $*_)`,
		`$log.Warn(fmt.Sprintf($*_), $*_)`,
		`$log.Error(fmt.Sprintf($*_), $*_)`,
	).
		Where(m["log"].Type.Implements("logger.Logger")).
		Report("use a constant message and logger fields instead of fmt.Sprintf")
}

// ErrorField flags errors flattened to strings before logging.
func ErrorField(m dsl.Matcher) {
	m.Match(`logger.String($key, $err.Error())`).
		Where(m["err"].Type.Implements("error")).
		Report("use logger.Error($err) instead of logger.String($key, $err.Error())").
		Suggest("logger.Error($err)")
}
