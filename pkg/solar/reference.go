package solar

import (
	"github.com/soniakeys/meeus/v3/julian"
	meeussolar "github.com/soniakeys/meeus/v3/solar"
)

// ReferenceDeclination returns the apparent declination of the sun in degrees
// from the Meeus low-precision solar theory. Use it to check the 23.45·sin(B)
// approximation; ComputePosition does not call it.
func ReferenceDeclination(instant LocalInstant) float64 {
	jd := julian.TimeToJD(instant.UTC())
	_, dec := meeussolar.ApparentEquatorial(jd)
	return dec.Deg()
}
