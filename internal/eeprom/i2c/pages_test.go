// internal/eeprom/i2c/pages_test.go
package i2c

import (
	"bytes"
	"testing"
)

func TestSplitPages_StaysInsidePages(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 64)

	cases := []struct {
		name  string
		addr  uint16
		n     int
		addrs []uint16
		sizes []int
	}{
		{"aligned single page", 480, 32, []uint16{480}, []int{32}},
		{"ssid slot crosses 512", 500, 32, []uint16{500, 512}, []int{12, 20}},
		{"password slot crosses 576 and 608", 564, 64, []uint16{564, 576, 608}, []int{12, 32, 20}},
		{"float within page", 140, 4, []uint16{140}, []int{4}},
		{"last byte of page", 31, 2, []uint16{31, 32}, []int{1, 1}},
		{"empty", 10, 0, nil, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitPages(tc.addr, data[:tc.n], DefaultPageSize)
			if len(got) != len(tc.addrs) {
				t.Fatalf("frames=%d, want %d: %+v", len(got), len(tc.addrs), got)
			}
			total := 0
			for i, w := range got {
				if w.Addr != tc.addrs[i] || len(w.Data) != tc.sizes[i] {
					t.Fatalf("frame %d = @%d len %d, want @%d len %d", i, w.Addr, len(w.Data), tc.addrs[i], tc.sizes[i])
				}
				if int(w.Addr)/DefaultPageSize != (int(w.Addr)+len(w.Data)-1)/DefaultPageSize {
					t.Fatalf("frame %d crosses a page: @%d len %d", i, w.Addr, len(w.Data))
				}
				total += len(w.Data)
			}
			if total != tc.n {
				t.Fatalf("bytes=%d, want %d", total, tc.n)
			}
		})
	}
}

func TestSplitPages_PreservesOrder(t *testing.T) {
	data := []byte("a-fairly-long-network-name-here")

	var joined []byte
	for _, w := range splitPages(500, data, 8) {
		joined = append(joined, w.Data...)
	}
	if !bytes.Equal(joined, data) {
		t.Fatalf("reassembled %q, want %q", joined, data)
	}
}

func TestPageWrite_FrameHeader(t *testing.T) {
	f := pageWrite{Addr: 0x0214, Data: []byte{1, 2}}.frame()
	if !bytes.Equal(f, []byte{0x02, 0x14, 1, 2}) {
		t.Fatalf("frame = % x", f)
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	if c.pageSize() != DefaultPageSize || c.writeCycle() != DefaultWriteCycle {
		t.Fatalf("defaults = %d %v", c.pageSize(), c.writeCycle())
	}
	c = Config{PageSize: 64, WriteCycle: DefaultWriteCycle * 2}
	if c.pageSize() != 64 || c.writeCycle() != 2*DefaultWriteCycle {
		t.Fatalf("overrides = %d %v", c.pageSize(), c.writeCycle())
	}
}
