package qc

import (
	"math"

	"github.com/skewtlabs/sonde-qc/internal/domain"
)

// Classification is the standard/significant level breakdown of one profile,
// recomputed for each check invocation.
//
// StdLev lists the profile indices of standard levels in profile order.
// SigBelow[j] and SigAbove[j] are the profile indices of the nearest
// significant level below (higher pressure) and above (lower pressure) the
// j-th standard level, or -1 when no such level exists. IndStd[i] maps a
// profile index back to its position in StdLev, or -1 for non-standard
// levels. LogP[i] is the natural log of pressure at every level.
type Classification struct {
	NumStd int
	NumSig int

	StdLev   []int
	SigBelow []int
	SigAbove []int
	IndStd   []int
	LogP     []float64
}

// Classify derives the level classification from a profile's pressures, a
// reference scalar field (the bias-corrected observed temperature), and the
// current flags. Standard and significant membership comes from the flag
// bits; a significant level additionally needs a non-missing reference value
// to serve as an interpolation anchor.
//
// Brackets are located positionally: profiles are ordered surface first, so
// the nearest significant level at an earlier index is "below" and the
// nearest at a later index is "above". A level that is both standard and
// significant never brackets itself.
func Classify(pressures, values []float64, flags []int) Classification {
	n := len(pressures)
	cls := Classification{
		IndStd: make([]int, n),
		LogP:   make([]float64, n),
	}

	for i := range n {
		cls.IndStd[i] = -1
		if pressures[i] > 0 {
			cls.LogP[i] = math.Log(pressures[i])
		} else {
			cls.LogP[i] = domain.MissingValue
		}
	}

	isSig := func(i int) bool {
		return flags[i]&domain.FlagSignificantLevel != 0 && values[i] != domain.MissingValue
	}

	lastSig := -1
	for i := range n {
		if flags[i]&domain.FlagStandardLevel != 0 {
			cls.IndStd[i] = cls.NumStd
			cls.StdLev = append(cls.StdLev, i)
			cls.SigBelow = append(cls.SigBelow, lastSig)
			cls.NumStd++
		}
		if isSig(i) {
			lastSig = i
			cls.NumSig++
		}
	}

	cls.SigAbove = make([]int, cls.NumStd)
	nextSig := -1
	for i := n - 1; i >= 0; i-- {
		if j := cls.IndStd[i]; j >= 0 {
			cls.SigAbove[j] = nextSig
		}
		if isSig(i) {
			nextSig = i
		}
	}

	return cls
}
