// Package domain models vertical atmospheric soundings (radiosonde profiles)
// and the per-profile data needed by observation quality control.
//
// # Soundings
//
// A sounding is an ordered set of levels, surface first, each carrying a
// pressure (Pa), an observed air temperature (K), a background (model)
// temperature (K), an observation bias correction (K), and a bitfield of QC
// flags. All per-level arrays of a profile have the same length; levels are
// addressed positionally. "Below" a level means higher pressure (lower
// altitude), "above" means lower pressure.
//
// # Level classification
//
// Upstream processing marks each level as standard and/or significant via
// flag bits:
//
//	Standard level:    a designated pressure surface (1000, 850, 700 hPa, ...)
//	                   at which consistency is always assessed.
//	Significant level: a level retained because it marks a notable change in
//	                   the vertical structure; used as interpolation anchors.
//
// A single level may be both, which is common at mandatory reporting levels.
//
// # Wire format
//
// The upstream decoder publishes each sounding as a JSON message with the
// level arrays flattened into parallel slices (see [RawSounding]). The QC
// service republishes a [CheckedSounding] carrying the mutated flags, the
// interpolated temperatures, per-level error tallies, and profile counters.
//
// # Missing data
//
// Float arrays use [MissingValue] as the missing-data indicator. Integer
// index arrays use -1 for "no such level".
package domain
