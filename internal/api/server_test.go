// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/battmon/internal/eeprom"
	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/loop"
	"github.com/tamzrod/battmon/internal/metrics"
	"github.com/tamzrod/battmon/internal/provision"
	"github.com/tamzrod/battmon/internal/registry"
	"github.com/tamzrod/battmon/internal/store"
	"github.com/tamzrod/battmon/internal/system"
	"github.com/tamzrod/battmon/internal/wifi"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	srv      *Server
	loop     *loop.Loop
	reg      *registry.Registry
	prov     *provision.Provisioner
	bus      *eeprom.Memory
	ring     *logging.Ring
	restarts chan string
}

type harnessOpts struct {
	sim         wifi.SimConfig
	joinTimeout time.Duration
	grace       time.Duration

	// holdRestart keeps Restart from returning until the test ends,
	// as exec never returns on success.
	holdRestart bool
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()

	if o.joinTimeout == 0 {
		o.joinTimeout = 200 * time.Millisecond
	}
	if o.grace == 0 {
		o.grace = time.Millisecond
	}

	h := &harness{
		bus:      eeprom.NewMemory(eeprom.SizeAT24C32),
		ring:     logging.NewRing(logging.DefaultRingLines),
		restarts: make(chan string, 4),
		loop:     loop.New(0),
	}

	reg, err := registry.New(store.New(h.bus, store.WithSettleDelay(0)), registry.DefaultSchema())
	require.NoError(t, err)
	h.reg = reg

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	rst := system.RestarterFunc(func(reason string) error {
		h.restarts <- reason
		if o.holdRestart {
			<-release
		}
		return nil
	})

	prov, err := provision.New(provision.Config{
		JoinTimeout:  o.joinTimeout,
		PollInterval: time.Millisecond,
		Grace:        o.grace,
	}, reg, wifi.NewSim(o.sim, nil), rst, provision.WithYield(h.loop.ServePending))
	require.NoError(t, err)
	h.prov = prov

	rec := metrics.NewPrometheusRecorder(nil)
	srv, err := New(Deps{
		Loop:        h.loop,
		Registry:    reg,
		Provisioner: prov,
		Restarter:   rst,
		Ring:        h.ring,
		Metrics:     rec.Handler(),
		RebootGrace: time.Millisecond,
	})
	require.NoError(t, err)
	h.srv = srv

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.loop.Run(ctx)

	return h
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

func (h *harness) settings(t *testing.T) registry.Settings {
	t.Helper()
	var s registry.Settings
	require.NoError(t, h.loop.Do(context.Background(), func(context.Context) { s = h.reg.Settings() }))
	return s
}

func (h *harness) expectNoRestart(t *testing.T) {
	t.Helper()
	select {
	case r := <-h.restarts:
		t.Fatalf("unexpected restart: %s", r)
	case <-time.After(20 * time.Millisecond):
	}
}

// =============================================================================
// Settings
// =============================================================================

func TestGetSettings_EightKeys(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	w := h.do(http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var got map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 8)
	assert.InDelta(t, 100, got[registry.KeyCapacityAh], 1e-6)
	assert.NotContains(t, got, registry.KeyNetworkPassword)
}

// Scenario A
func TestPostSettings_SOCClampedAndDerivedRecomputed(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	w := h.do(http.MethodPost, "/settings", `{"soc": 150}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgSettingsSaved, w.Body.String())

	s := h.settings(t)
	assert.Equal(t, float32(100), s.SOC)
	assert.Equal(t, registry.Coulombs(100, s.CapacityAh), s.TotalCoulombs)
}

// Scenario B
func TestPostSettings_PartialUpdateVisibleInGet(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	var before map[string]float64
	require.NoError(t, json.Unmarshal(h.do(http.MethodGet, "/settings", "").Body.Bytes(), &before))

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/settings", `{"voltage_offset": 0.5}`).Code)

	var after map[string]float64
	require.NoError(t, json.Unmarshal(h.do(http.MethodGet, "/settings", "").Body.Bytes(), &after))

	assert.Equal(t, 0.5, after[registry.KeyVoltageOffset])
	for k, v := range before {
		if k == registry.KeyVoltageOffset {
			continue
		}
		assert.Equal(t, v, after[k], "field %s changed", k)
	}
}

func TestPostSettings_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing body", "", msgBodyMissing},
		{"malformed", `{"soc":`, msgInvalidJSON},
		{"not an object", `[1,2]`, msgInvalidJSON},
		{"string value", `{"soc":"50"}`, "Invalid value for soc"},
		{"unknown key", `{"soc":50,"bogus":1}`, msgUnknownSetting},
		{"string field", `{"network_ssid":1}`, msgUnknownSetting},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newHarness(t, harnessOpts{})
			before := h.settings(t)

			w := h.do(http.MethodPost, "/settings", c.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, c.want, w.Body.String())
			assert.Equal(t, before, h.settings(t))
		})
	}
}

// =============================================================================
// Provisioning
// =============================================================================

// Scenario C
func TestWifiConfig_JoinSucceeds(t *testing.T) {
	h := newHarness(t, harnessOpts{sim: wifi.SimConfig{
		JoinAfter: 10 * time.Millisecond,
		Addr:      netip.MustParseAddr("192.168.1.50"),
	}})

	w := h.do(http.MethodPost, "/wifi_config", `{"ssid":"Net","password":"pass1234"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","sta_ip":"192.168.1.50"}`, w.Body.String())

	select {
	case r := <-h.restarts:
		assert.Equal(t, system.ReasonProvisioned, r)
	case <-time.After(time.Second):
		t.Fatal("no restart after join")
	}

	assert.Equal(t, registry.Credentials{SSID: "Net", Password: "pass1234"}, h.settings(t).Network)
}

// Scenario D
func TestWifiConfig_JoinTimesOut(t *testing.T) {
	h := newHarness(t, harnessOpts{
		sim:         wifi.SimConfig{AcceptSSID: "Elsewhere"},
		joinTimeout: 50 * time.Millisecond,
	})

	w := h.do(http.MethodPost, "/wifi_config", `{"ssid":"Net","password":"pass1234"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"NOT_CONNECTED","sta_ip":""}`, w.Body.String())

	select {
	case r := <-h.restarts:
		assert.Equal(t, system.ReasonProvisioned, r)
	case <-time.After(time.Second):
		t.Fatal("no restart after failed join")
	}
}

// Scenario E
func TestWifiConfig_MissingFields(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"ssid":"Net"}`,
		`{"password":"pass1234"}`,
		`{"ssid":"` + strings.Repeat("x", 32) + `","password":"p"}`,
	} {
		t.Run(body, func(t *testing.T) {
			h := newHarness(t, harnessOpts{})

			w := h.do(http.MethodPost, "/wifi_config", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, msgMissingCreds, w.Body.String())

			buf := make([]byte, registry.WidthSSID)
			_, err := h.bus.Read(registry.AddrNetworkSSID, buf)
			require.NoError(t, err)
			assert.Equal(t, byte(0xFF), buf[0], "storage untouched")
			h.expectNoRestart(t)
		})
	}
}

func TestWifiConfig_EmptySSIDRejected(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	w := h.do(http.MethodPost, "/wifi_config", `{"ssid":"","password":"x"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.expectNoRestart(t)
}

func TestWifiConfig_BodyMissing(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	w := h.do(http.MethodPost, "/wifi_config", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgBodyMissing, w.Body.String())
}

func TestWifiConfig_ServesRequestsDuringJoinAndRejectsSecond(t *testing.T) {
	h := newHarness(t, harnessOpts{
		sim:         wifi.SimConfig{AcceptSSID: "Elsewhere"},
		joinTimeout: 500 * time.Millisecond,
	})

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- h.do(http.MethodPost, "/wifi_config", `{"ssid":"Net","password":"pass1234"}`)
	}()

	require.Eventually(t, func() bool {
		var st provision.State
		_ = h.loop.Do(context.Background(), func(context.Context) { st = h.prov.State() })
		return st == provision.Connecting
	}, time.Second, 2*time.Millisecond)

	// served from inside the join wait
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/settings", "").Code)
	assert.Equal(t, "NOT_CONNECTED", h.do(http.MethodGet, "/sta_ip", "").Body.String())

	second := h.do(http.MethodPost, "/wifi_config", `{"ssid":"Other","password":"pass1234"}`)
	assert.Equal(t, http.StatusConflict, second.Code)

	w := <-first
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"NOT_CONNECTED","sta_ip":""}`, w.Body.String())
	assert.Equal(t, system.ReasonProvisioned, <-h.restarts)
	assert.Equal(t, "Net", h.settings(t).Network.SSID)
}

func TestWifiConfig_SecondSubmissionDuringGraceIsConflict(t *testing.T) {
	h := newHarness(t, harnessOpts{
		sim:         wifi.SimConfig{Addr: netip.MustParseAddr("10.0.0.2")},
		grace:       300 * time.Millisecond,
		holdRestart: true,
	})

	w := h.do(http.MethodPost, "/wifi_config", `{"ssid":"Net","password":"pass1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK","sta_ip":"10.0.0.2"}`, w.Body.String())

	second := h.do(http.MethodPost, "/wifi_config", `{"ssid":"Other","password":"pass1234"}`)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, msgBusy, second.Body.String())

	// the loop keeps serving until the restart
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/settings", "").Code)
	assert.Equal(t, "Net", h.settings(t).Network.SSID)

	select {
	case r := <-h.restarts:
		assert.Equal(t, system.ReasonProvisioned, r)
	case <-time.After(time.Second):
		t.Fatal("no restart after grace")
	}
}

// =============================================================================
// Device routes
// =============================================================================

func TestStaIP_AfterBootJoin(t *testing.T) {
	h := newHarness(t, harnessOpts{sim: wifi.SimConfig{Addr: netip.MustParseAddr("10.1.2.3")}})
	require.NoError(t, h.loop.Do(context.Background(), func(ctx context.Context) {
		assert.NoError(t, h.reg.SetCredentials(registry.Credentials{SSID: "Net", Password: "pw"}))
		h.prov.Boot(ctx)
	}))

	w := h.do(http.MethodGet, "/sta_ip", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10.1.2.3", w.Body.String())
}

func TestReboot_RespondsThenRestarts(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	w := h.do(http.MethodPost, "/reboot", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgRebooting, w.Body.String())

	select {
	case r := <-h.restarts:
		assert.Equal(t, system.ReasonRequested, r)
	case <-time.After(time.Second):
		t.Fatal("no restart")
	}
}

func TestReboot_ServesRequestsDuringGrace(t *testing.T) {
	h := newHarness(t, harnessOpts{holdRestart: true})
	h.srv.deps.RebootGrace = 300 * time.Millisecond

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/reboot", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/settings", "").Code)

	select {
	case r := <-h.restarts:
		assert.Equal(t, system.ReasonRequested, r)
	case <-time.After(time.Second):
		t.Fatal("no restart")
	}
}

func TestSerialLog_OldestFirst(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	_, _ = h.ring.Write([]byte("first\n"))
	_, _ = h.ring.Write([]byte("second\n"))

	w := h.do(http.MethodGet, "/serial_log", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "first\nsecond\n", w.Body.String())
}

func TestMetrics_Exposed(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	w := h.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	for _, c := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodDelete, "/settings"},
		{http.MethodGet, "/wifi_config"},
	} {
		w := h.do(c.method, c.path, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Not Found", w.Body.String())
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}
