package iref

type readConfig struct {
	limits      Limits
	strictTypes bool
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

// WithStrictTypes rejects reference boxes whose type is not one of
// KnownReferenceTypes. By default any four-character code is accepted.
func WithStrictTypes(v bool) ReadOption {
	return func(c *readConfig) { c.strictTypes = v }
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	return cfg
}

type writeConfig struct {
	limits   Limits
	minWidth IDWidth
}

type WriteOption func(*writeConfig)

func WithWriteLimits(l Limits) WriteOption {
	return func(c *writeConfig) { c.limits = l }
}

// WithMinIDWidth forces at least width w. Passing Wide writes a version 1 box
// even when every id fits in 16 bits.
func WithMinIDWidth(w IDWidth) WriteOption {
	return func(c *writeConfig) { c.minWidth = w }
}

func newWriteConfig(opts []WriteOption) writeConfig {
	cfg := writeConfig{limits: defaultLimits(), minWidth: Narrow}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	return cfg
}
