// internal/eeprom/i2c/pages.go
package i2c

// pageWrite is one device write frame that stays inside a single page.
type pageWrite struct {
	Addr uint16
	Data []byte
}

// splitPages cuts p at every page boundary starting from addr.
// The returned slices alias p.
func splitPages(addr uint16, p []byte, pageSize int) []pageWrite {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var out []pageWrite
	for len(p) > 0 {
		room := pageSize - int(addr)%pageSize
		n := min(room, len(p))
		out = append(out, pageWrite{Addr: addr, Data: p[:n]})
		addr += uint16(n)
		p = p[n:]
	}
	return out
}

// frame prefixes data with the 16-bit big-endian memory address.
func (w pageWrite) frame() []byte {
	f := make([]byte, 0, 2+len(w.Data))
	f = append(f, byte(w.Addr>>8), byte(w.Addr))
	return append(f, w.Data...)
}
