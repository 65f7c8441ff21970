// Package conv formats register values without fmt.
package conv

const hexd = "0123456789ABCDEF"

// U8Hex writes "0xNN" into buf and returns the used slice; buf needs 4 bytes.
func U8Hex(buf []byte, n uint8) []byte {
	if len(buf) < 4 {
		return buf[:0]
	}
	buf[0], buf[1] = '0', 'x'
	buf[2] = hexd[n>>4]
	buf[3] = hexd[n&0xF]
	return buf[:4]
}

// RegWrite renders "0xAA <- 0xVV" for a register log line.
func RegWrite(addr, value uint8) string {
	var a, v [4]byte
	out := make([]byte, 0, 12)
	out = append(out, U8Hex(a[:], addr)...)
	out = append(out, " <- "...)
	return string(append(out, U8Hex(v[:], value)...))
}
