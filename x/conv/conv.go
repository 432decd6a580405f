// Package conv has allocation-light number formatting and parsing for the
// line protocol. Writers append to dst and return the extended slice.
package conv

import (
	"math"
	"strconv"
)

// AppendUint appends the base-10 form of n.
func AppendUint(dst []byte, n uint64) []byte {
	var buf [20]byte
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, buf[i:]...)
}

// AppendInt appends the base-10 form of n.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return AppendUint(dst, uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendFixed appends f with exactly prec decimals (prec <= 6).
// Halves round away from zero. NaN and Inf are written as 0.
func AppendFixed(dst []byte, f float64, prec int) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	if prec < 0 {
		prec = 0
	}
	if prec > 6 {
		prec = 6
	}
	scale := math.Pow10(prec)
	v := math.Round(math.Abs(f) * scale)
	if f < 0 && v != 0 {
		dst = append(dst, '-')
	}
	ip := uint64(v / scale)
	frac := uint64(v - float64(ip)*scale)
	dst = AppendUint(dst, ip)
	if prec == 0 {
		return dst
	}
	dst = append(dst, '.')
	var buf [6]byte
	for i := prec - 1; i >= 0; i-- {
		buf[i] = byte('0' + frac%10)
		frac /= 10
	}
	return append(dst, buf[:prec]...)
}

// ParseFloatPrefix parses the longest decimal number at the start of s after
// leading spaces. n is the number of bytes consumed; n == 0 means no number.
func ParseFloatPrefix(s []byte) (v float64, n int) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, 0
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			end = k
		}
	}
	v, err := strconv.ParseFloat(string(s[start:end]), 64)
	if err != nil {
		// Out of range still yields ±Inf, which callers clamp.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return 0, 0
		}
	}
	return v, end
}
