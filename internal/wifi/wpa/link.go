// internal/wifi/wpa/link.go
package wpa

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tamzrod/battmon/internal/wifi"
)

// DefaultTimeout bounds one control-socket round trip.
const DefaultTimeout = 2 * time.Second

// Config selects the wpa_supplicant control socket.
type Config struct {
	CtrlPath string // e.g. /var/run/wpa_supplicant/wlan0
	Timeout  time.Duration
}

// Link drives the station interface through the wpa_supplicant control
// socket. The access point side is owned by hostapd and is left alone.
type Link struct {
	mu      sync.Mutex
	conn    *net.UnixConn
	local   string
	timeout time.Duration
}

var seq atomic.Uint32

// Dial binds a local datagram socket and connects it to the control path.
func Dial(cfg Config) (*Link, error) {
	if cfg.CtrlPath == "" {
		return nil, errors.New("wpa: ctrl path required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	local := filepath.Join(os.TempDir(), fmt.Sprintf("battmon-wpa-%d-%d", os.Getpid(), seq.Add(1)))
	_ = os.Remove(local)

	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: local, Net: "unixgram"},
		&net.UnixAddr{Name: cfg.CtrlPath, Net: "unixgram"},
	)
	if err != nil {
		return nil, fmt.Errorf("wpa: dial %s: %w", cfg.CtrlPath, err)
	}

	return &Link{conn: conn, local: local, timeout: cfg.Timeout}, nil
}

// EnableDualMode checks the supplicant is reachable. Concurrent AP+STA is a
// property of the driver configuration; nothing to switch at runtime.
func (l *Link) EnableDualMode() error {
	reply, err := l.request("PING")
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("wpa: unexpected PING reply %q", reply)
	}
	return nil
}

// Join adds a network block for the target and selects it.
func (l *Link) Join(ssid, password string) error {
	id, err := l.request("ADD_NETWORK")
	if err != nil {
		return err
	}
	if strings.HasPrefix(id, "FAIL") {
		return fmt.Errorf("wpa: ADD_NETWORK: %s", id)
	}

	cmds := []string{
		fmt.Sprintf("SET_NETWORK %s ssid %s", id, hex.EncodeToString([]byte(ssid))),
	}
	if password == "" {
		cmds = append(cmds, fmt.Sprintf("SET_NETWORK %s key_mgmt NONE", id))
	} else {
		cmds = append(cmds, fmt.Sprintf("SET_NETWORK %s psk %q", id, password))
	}
	cmds = append(cmds, "SELECT_NETWORK "+id)

	for _, c := range cmds {
		if err := l.expectOK(c); err != nil {
			return err
		}
	}
	return nil
}

// Status reports COMPLETED plus an address as joined. Transport errors are
// treated as not joined; the caller polls again.
func (l *Link) Status() wifi.Status {
	reply, err := l.request("STATUS")
	if err != nil {
		return wifi.Status{}
	}
	return ParseStatus(reply)
}

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.conn.Close()
	_ = os.Remove(l.local)
	return err
}

// ParseStatus interprets a STATUS reply.
func ParseStatus(reply string) wifi.Status {
	var (
		state string
		addr  netip.Addr
	)

	sc := bufio.NewScanner(strings.NewReader(reply))
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch k {
		case "wpa_state":
			state = v
		case "ip_address":
			if a, err := netip.ParseAddr(v); err == nil {
				addr = a
			}
		}
	}

	if state != "COMPLETED" || !addr.IsValid() {
		return wifi.Status{}
	}
	return wifi.Status{Joined: true, Addr: addr}
}

// ---- transport ----

func (l *Link) expectOK(cmd string) error {
	reply, err := l.request(cmd)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("wpa: %s: %s", strings.Fields(cmd)[0], reply)
	}
	return nil
}

func (l *Link) request(cmd string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.conn.SetDeadline(time.Now().Add(l.timeout)); err != nil {
		return "", err
	}
	if _, err := l.conn.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("wpa: send %s: %w", cmd, err)
	}

	buf := make([]byte, 4096)
	for {
		n, err := l.conn.Read(buf)
		if err != nil {
			return "", fmt.Errorf("wpa: recv %s: %w", cmd, err)
		}
		msg := string(buf[:n])
		// unsolicited event, e.g. "<3>CTRL-EVENT-SCAN-RESULTS"
		if strings.HasPrefix(msg, "<") {
			continue
		}
		return strings.TrimRight(msg, "\n"), nil
	}
}
