package uop

// HashFileName returns the container checksum of a path name.
func HashFileName(name string) uint64 {
	return Hash([]byte(name))
}

// Hash is the lookup3 (hashlittle2) checksum UOP containers key entries by,
// seeded with zero. The high word is lookup3's b, the low word its c.
func Hash(s []byte) uint64 {
	n := uint32(len(s))
	a := n + 0xDEADBEEF
	b, c := a, a
	var d, e uint32

	i := 0
	for ; i+12 < len(s); i += 12 {
		b += le32(s[i+4:])
		a += le32(s[i+8:])
		d = le32(s[i:]) - a

		d = (d + c) ^ (a >> 28) ^ (a << 4)
		a += b
		b = (b - d) ^ (d >> 26) ^ (d << 6)
		d += a
		a = (a - b) ^ (b >> 24) ^ (b << 8)
		b += d
		c = (d - a) ^ (a >> 16) ^ (a << 16)
		a += b
		b = (b - c) ^ (c >> 13) ^ (c << 19)
		c += a
		a = (a - b) ^ (b >> 28) ^ (b << 4)
		b += c
	}

	rest := len(s) - i
	if rest <= 0 {
		return uint64(a) << 32
	}

	// Bytes 8..11 of the tail go to a, 4..7 to b, 0..3 to c.
	tail := s[i:]
	for k := rest - 1; k >= 0; k-- {
		v := uint32(tail[k]) << (8 * uint(k%4))
		switch {
		case k >= 8:
			a += v
		case k >= 4:
			b += v
		default:
			c += v
		}
	}

	a = (a ^ b) - ((b >> 18) ^ (b << 14))
	f := (a ^ c) - ((a >> 21) ^ (a << 11))
	b = (b ^ f) - ((f >> 7) ^ (f << 25))
	a = (a ^ b) - ((b >> 16) ^ (b << 16))
	d = (a ^ f) - ((a >> 28) ^ (a << 4))
	b = (b ^ d) - ((d >> 18) ^ (d << 14))
	e = (a ^ b) - ((b >> 8) ^ (b << 24))

	return uint64(b)<<32 | uint64(e)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
