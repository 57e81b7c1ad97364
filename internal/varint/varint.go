// Package varint implements the big-endian, base-128, 9-byte-max
// variable length integer encoding used by the PMA record/byte-count
// headers (spec §3 "PMA (packed memory array)"). Grounded on
// util.go's GetVarint/PutVarint (sqlite3GetVarint/sqlite3PutVarint),
// re-expressed as ordinary Go rather than transliterated C: each
// byte's low 7 bits are data, the high bit marks "more bytes follow",
// and the 9th byte (if reached) contributes all 8 of its bits.
package varint

// MaxLen is the longest a varint can be: eight 7-bit groups plus one
// full byte covers the full 64-bit range.
const MaxLen = 9

// Len returns the number of bytes Put would write for v.
func Len(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	if n > MaxLen {
		return MaxLen
	}
	return n
}

// Put encodes v into p (which must have length >= Len(v)) and returns
// the number of bytes written.
func Put(p []byte, v uint64) int {
	if v <= 0x7f {
		p[0] = byte(v)
		return 1
	}
	var buf [MaxLen]byte
	i := MaxLen - 1
	buf[i] = byte(v & 0x7f)
	v >>= 7
	for v != 0 && i > 0 {
		i--
		buf[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	n := copy(p, buf[i:])
	return n
}

// Get decodes a varint from the front of p, returning the value and
// the number of bytes consumed. Returns count==0 if p is empty.
func Get(p []byte) (v uint64, count int) {
	if len(p) == 0 {
		return 0, 0
	}
	for count = 0; count < MaxLen && count < len(p); count++ {
		b := p[count]
		if count == MaxLen-1 {
			// ninth byte: all 8 bits are data, no continuation bit
			v = (v << 8) | uint64(b)
			count++
			return v, count
		}
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			count++
			return v, count
		}
	}
	return 0, 0
}
