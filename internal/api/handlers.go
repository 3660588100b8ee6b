// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/provision"
	"github.com/tamzrod/battmon/internal/registry"
	"github.com/tamzrod/battmon/internal/system"
)

// Response texts.
const (
	msgBodyMissing    = "Body missing"
	msgInvalidJSON    = "Invalid JSON"
	msgMissingCreds   = "Missing ssid or password"
	msgSettingsSaved  = "Settings updated and saved to EEPROM."
	msgRebooting      = "Rebooting..."
	msgNotConnected   = "NOT_CONNECTED"
	msgBusy           = "Provisioning already in progress"
	msgLoopStopped    = "Service unavailable"
	msgUnknownSetting = "Unknown setting"
	msgInvalidValue   = "Invalid value"
)

// ---- settings ----

func (s *Server) getSettings(c *gin.Context) {
	var snap map[string]float32
	err := s.deps.Loop.Do(c.Request.Context(), func(context.Context) {
		snap = s.deps.Registry.Snapshot()
	})
	if err != nil {
		c.String(http.StatusServiceUnavailable, msgLoopStopped)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) postSettings(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		c.String(http.StatusBadRequest, msgInvalidJSON)
		return
	}

	update := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, ok := v.(float64)
		if !ok {
			c.String(http.StatusBadRequest, "Invalid value for %s", k)
			return
		}
		update[k] = f
	}

	var applyErr error
	err := s.deps.Loop.Do(c.Request.Context(), func(context.Context) {
		applyErr = s.deps.Registry.ApplyUpdate(update)
	})
	switch {
	case err != nil:
		c.String(http.StatusServiceUnavailable, msgLoopStopped)
	case errors.Is(applyErr, registry.ErrUnknownField):
		c.String(http.StatusBadRequest, msgUnknownSetting)
	case errors.Is(applyErr, registry.ErrInvalidValue):
		c.String(http.StatusBadRequest, msgInvalidValue)
	case applyErr != nil:
		c.String(http.StatusInternalServerError, applyErr.Error())
	default:
		c.String(http.StatusOK, msgSettingsSaved)
	}
}

// ---- provisioning ----

// postWifiConfig hands the submission to the control loop and replies as
// soon as the outcome is known. The loop then waits the grace period and
// restarts; the handler is not kept open for that.
func (s *Server) postWifiConfig(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	var req WifiConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.String(http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		c.String(http.StatusBadRequest, msgMissingCreds)
		return
	}
	creds := req.Credentials()

	outc := make(chan provision.Outcome, 1)
	errc := make(chan error, 1)
	err := s.deps.Loop.Post(c.Request.Context(), func(ctx context.Context) {
		errc <- s.deps.Provisioner.Submit(ctx, creds, func(o provision.Outcome) { outc <- o })
	})
	if err != nil {
		c.String(http.StatusServiceUnavailable, msgLoopStopped)
		return
	}

	select {
	case o := <-outc:
		c.JSON(http.StatusOK, o)
	case err := <-errc:
		// the outcome, if any, was sent before Submit returned
		select {
		case o := <-outc:
			c.JSON(http.StatusOK, o)
			return
		default:
		}
		switch {
		case errors.Is(err, provision.ErrBusy):
			c.String(http.StatusConflict, msgBusy)
		case errors.Is(err, registry.ErrInvalidCredentials):
			c.String(http.StatusBadRequest, msgMissingCreds)
		case err != nil:
			c.String(http.StatusInternalServerError, err.Error())
		default:
			c.String(http.StatusInternalServerError, "no outcome")
		}
	case <-c.Request.Context().Done():
	}
}

func (s *Server) getStaIP(c *gin.Context) {
	var (
		addr   string
		joined bool
	)
	err := s.deps.Loop.Do(c.Request.Context(), func(context.Context) {
		a, ok := s.deps.Provisioner.StationAddr()
		addr, joined = a.String(), ok
	})
	if err != nil {
		c.String(http.StatusServiceUnavailable, msgLoopStopped)
		return
	}
	if !joined {
		addr = msgNotConnected
	}
	c.String(http.StatusOK, addr)
}

// ---- device ----

func (s *Server) postReboot(c *gin.Context) {
	lp, clock, grace, rst, log := s.deps.Loop, s.deps.Clock, s.deps.RebootGrace, s.deps.Restarter, s.deps.Log

	err := lp.Post(c.Request.Context(), func(context.Context) {
		// keep serving queued requests until the restart
		deadline := clock.Now().Add(grace)
		for left := grace; left > 0; left = deadline.Sub(clock.Now()) {
			lp.ServePending()
			clock.Sleep(min(left, rebootPollInterval))
		}
		if err := rst.Restart(system.ReasonRequested); err != nil {
			log.Error("restart failed", logging.Error(err))
		}
	})
	if err != nil {
		c.String(http.StatusServiceUnavailable, msgLoopStopped)
		return
	}
	c.String(http.StatusOK, msgRebooting)
}

func (s *Server) getSerialLog(c *gin.Context) {
	var b strings.Builder
	for _, line := range s.deps.Ring.Lines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	c.String(http.StatusOK, b.String())
}

// ---- helpers ----

// readBody returns the request body, replying 400 when it is absent.
func readBody(c *gin.Context) ([]byte, bool) {
	if c.Request.Body == nil {
		c.String(http.StatusBadRequest, msgBodyMissing)
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.String(http.StatusBadRequest, msgInvalidJSON)
		return nil, false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		c.String(http.StatusBadRequest, msgBodyMissing)
		return nil, false
	}
	return body, true
}
