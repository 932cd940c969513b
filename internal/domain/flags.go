package domain

// QC flag bits carried per level in a sounding's flag array. The layout is
// part of the wire format: downstream consumers test individual bits, so
// values must stay stable.
const (
	// FlagSurfaceLevel marks the surface observation. Surface levels are
	// excluded from interpolation checks.
	FlagSurfaceLevel = 1 << 0

	// FlagStandardLevel marks a designated standard pressure level.
	FlagStandardLevel = 1 << 1

	// FlagSignificantLevel marks a significant level usable as an
	// interpolation anchor.
	FlagSignificantLevel = 1 << 2

	// FlagTropopause marks the tropopause level.
	FlagTropopause = 1 << 3

	// FlagInterpolation is set on a standard level and both of its brackets
	// when the interpolation consistency check fails.
	FlagInterpolation = 1 << 4

	// FlagFinalReject is reserved for downstream rejection decisions; this
	// service never sets it.
	FlagFinalReject = 1 << 5
)

// MissingValue is the missing-data indicator for float arrays, following the
// met-office convention of a large negative sentinel.
const MissingValue float64 = -1073741824.0
