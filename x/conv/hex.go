package conv

// AppendHex appends n as lowercase hex with a 0x prefix, zero-padded to
// digits (1..8).
func AppendHex(dst []byte, n uint32, digits int) []byte {
	if digits < 1 {
		digits = 1
	}
	if digits > 8 {
		digits = 8
	}
	const hexd = "0123456789abcdef"
	var buf [8]byte
	for i := digits - 1; i >= 0; i-- {
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	dst = append(dst, '0', 'x')
	return append(dst, buf[:digits]...)
}
