package mathx

// MapU16 maps x in [inMin,inMax] to [outMin,outMax] with 32-bit intermediates.
// The output range may be descending. Inputs outside the input range clamp
// to the nearest output endpoint.
func MapU16(x, inMin, inMax int, outMin, outMax uint16) uint16 {
	if inMax <= inMin {
		return outMin
	}
	if x <= inMin {
		return outMin
	}
	if x >= inMax {
		return outMax
	}
	d := int32(outMax) - int32(outMin)
	num := int32(x-inMin) * d
	return uint16(int32(outMin) + num/int32(inMax-inMin))
}
