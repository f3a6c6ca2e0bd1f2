package consensus

import "encoding/binary"

// CompactSize is a Bitcoin-style variable-length unsigned integer encoding,
// used to length-prefix the variable-size fields (strings, maps) of the
// canonical serialization so two transactions can never produce ambiguous
// byte streams.
func appendCompactSize(dst []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(dst, byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xfd)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n))
		return append(dst, b[:]...)
	case n <= 0xffff_ffff:
		dst = append(dst, 0xfe)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n))
		return append(dst, b[:]...)
	default:
		dst = append(dst, 0xff)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], n)
		return append(dst, b[:]...)
	}
}

// readCompactSize reads one CompactSize value from buf starting at *off,
// advancing *off past it. Non-minimal encodings are rejected: a value that
// fits in a smaller tag must use that tag, so every integer has exactly one
// valid encoding.
func readCompactSize(buf []byte, off *int) (uint64, error) {
	if *off >= len(buf) {
		return 0, txerr(ErrParse, "compactsize: truncated")
	}
	tag := buf[*off]
	*off++
	switch {
	case tag < 0xfd:
		return uint64(tag), nil
	case tag == 0xfd:
		if *off+2 > len(buf) {
			return 0, txerr(ErrParse, "compactsize: truncated u16")
		}
		v := binary.LittleEndian.Uint16(buf[*off : *off+2])
		*off += 2
		if v < 0xfd {
			return 0, txerr(ErrParse, "compactsize: non-minimal u16")
		}
		return uint64(v), nil
	case tag == 0xfe:
		if *off+4 > len(buf) {
			return 0, txerr(ErrParse, "compactsize: truncated u32")
		}
		v := binary.LittleEndian.Uint32(buf[*off : *off+4])
		*off += 4
		if v <= 0xffff {
			return 0, txerr(ErrParse, "compactsize: non-minimal u32")
		}
		return uint64(v), nil
	default:
		if *off+8 > len(buf) {
			return 0, txerr(ErrParse, "compactsize: truncated u64")
		}
		v := binary.LittleEndian.Uint64(buf[*off : *off+8])
		*off += 8
		if v <= 0xffff_ffff {
			return 0, txerr(ErrParse, "compactsize: non-minimal u64")
		}
		return v, nil
	}
}

// appendString length-prefixes s with a CompactSize and appends it to dst.
func appendString(dst []byte, s string) []byte {
	dst = appendCompactSize(dst, uint64(len(s)))
	return append(dst, s...)
}

func readString(buf []byte, off *int) (string, error) {
	n, err := readCompactSize(buf, off)
	if err != nil {
		return "", err
	}
	if uint64(*off)+n > uint64(len(buf)) {
		return "", txerr(ErrParse, "string: truncated")
	}
	s := string(buf[*off : uint64(*off)+n])
	*off += int(n)
	return s, nil
}

func appendU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func readU64(buf []byte, off *int) (uint64, error) {
	if *off+8 > len(buf) {
		return 0, txerr(ErrParse, "u64: truncated")
	}
	v := binary.LittleEndian.Uint64(buf[*off : *off+8])
	*off += 8
	return v, nil
}

func appendI64(dst []byte, v int64) []byte {
	return appendU64(dst, uint64(v))
}

func readI64(buf []byte, off *int) (int64, error) {
	v, err := readU64(buf, off)
	return int64(v), err
}

func appendI32(dst []byte, v int) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return append(dst, b[:]...)
}

func readI32(buf []byte, off *int) (int, error) {
	if *off+4 > len(buf) {
		return 0, txerr(ErrParse, "i32: truncated")
	}
	v := binary.LittleEndian.Uint32(buf[*off : *off+4])
	*off += 4
	return int(int32(v)), nil
}
