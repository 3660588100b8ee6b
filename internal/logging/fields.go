// internal/logging/fields.go
package logging

import (
	"log/slog"
	"net/netip"
)

// Canonical log field names.
const (
	KeyAddr   = "addr"
	KeyField  = "field"
	KeyValue  = "value"
	KeySSID   = "ssid"
	KeyState  = "state"
	KeyIP     = "sta_ip"
	KeyReason = "reason"
	KeyError  = "error"
)

func Addr(a uint16) slog.Attr          { return slog.Int(KeyAddr, int(a)) }
func Field(key string) slog.Attr       { return slog.String(KeyField, key) }
func Value(v float32) slog.Attr        { return slog.Float64(KeyValue, float64(v)) }
func SSID(s string) slog.Attr          { return slog.String(KeySSID, s) }
func State(s string) slog.Attr         { return slog.String(KeyState, s) }
func IP(a netip.Addr) slog.Attr        { return slog.String(KeyIP, a.String()) }
func Reason(r string) slog.Attr        { return slog.String(KeyReason, r) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Discard returns a logger that drops everything. Used as the nil default.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
