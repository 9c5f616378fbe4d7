package iref

type Limits struct {
	MaxBoxSize             uint64 // whole iref box, header included
	MaxReferences          int    // reference boxes per iref box
	MaxTargetsPerReference int    // to-items per reference box
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return defaultLimits()
}

func defaultLimits() Limits {
	return Limits{
		MaxBoxSize:             16 << 20, // 16 MiB
		MaxReferences:          65_535,
		MaxTargetsPerReference: 65_535,
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxBoxSize == 0 {
		l.MaxBoxSize = d.MaxBoxSize
	}
	if l.MaxReferences == 0 {
		l.MaxReferences = d.MaxReferences
	}
	if l.MaxTargetsPerReference == 0 {
		l.MaxTargetsPerReference = d.MaxTargetsPerReference
	}
	return l
}
