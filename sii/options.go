package sii

type decodeConfig struct {
	limits  Limits
	lenient bool
}

type DecodeOption func(*decodeConfig)

func WithLimits(l Limits) DecodeOption {
	return func(c *decodeConfig) { c.limits = l }
}

// WithLenientMode makes the decoder skip whole instances whose definition
// uses a type code the decoder cannot materialize, provided the code's wire
// width is known so the instance can be scanned past. Skips are recorded on
// the resulting Document. Width-indeterminate codes remain fatal. The
// default (strict) mode fails at the offending definition.
func WithLenientMode() DecodeOption {
	return func(c *decodeConfig) { c.lenient = true }
}
