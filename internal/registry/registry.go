// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"unicode/utf8"

	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/metrics"
	"github.com/tamzrod/battmon/internal/store"
)

var (
	ErrUnknownField       = errors.New("registry: unknown field")
	ErrInvalidValue       = errors.New("registry: value is not a finite number")
	ErrInvalidCredentials = errors.New("registry: invalid credentials")
)

// Registry maps named fields onto the store and keeps the in-memory mirror.
// It is the only writer of persistent storage.
// Not safe for concurrent use: the control loop owns it.
type Registry struct {
	st       *store.Store
	schema   Schema
	settings Settings
	rec      metrics.Recorder
	log      *slog.Logger
}

// Option configures a Registry.
type Option func(*registryOptions)

type registryOptions struct {
	defaults   Settings
	deviceSize int
	rec        metrics.Recorder
	log        *slog.Logger
}

// WithDefaults sets the mirror values used before/without bootstrap.
func WithDefaults(s Settings) Option {
	return func(o *registryOptions) { o.defaults = s }
}

// WithDeviceSize enables the schema capacity check.
func WithDeviceSize(n int) Option {
	return func(o *registryOptions) { o.deviceSize = n }
}

// WithRecorder attaches metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *registryOptions) { o.rec = r }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *registryOptions) { o.log = l }
}

// New validates schema once and returns a registry with default mirrors.
func New(st *store.Store, schema Schema, opts ...Option) (*Registry, error) {
	if st == nil {
		return nil, errors.New("registry: store required")
	}

	o := registryOptions{
		defaults: DefaultSettings(),
		rec:      metrics.NoopRecorder{},
		log:      logging.Discard(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	if err := schema.Validate(o.deviceSize); err != nil {
		return nil, err
	}

	// every field must have a mirror slot
	mirror := o.defaults
	for _, f := range schema {
		switch f.Kind {
		case KindFloat:
			if mirror.scalar(f.Key) == nil {
				return nil, fmt.Errorf("registry: no mirror for float field %q", f.Key)
			}
		case KindString:
			if mirror.text(f.Key) == nil {
				return nil, fmt.Errorf("registry: no mirror for string field %q", f.Key)
			}
		}
	}

	r := &Registry{
		st:       st,
		schema:   schema,
		settings: o.defaults,
		rec:      o.rec,
		log:      o.log,
	}
	r.recompute()
	return r, nil
}

// Schema returns the field table.
func (r *Registry) Schema() Schema {
	return r.schema
}

// ---- reads (mirror only, never the bus) ----

// Snapshot returns every float field keyed by wire key.
func (r *Registry) Snapshot() map[string]float32 {
	out := make(map[string]float32, len(r.schema))
	for _, f := range r.schema {
		if f.Kind != KindFloat {
			continue
		}
		out[f.Key] = *r.settings.scalar(f.Key)
	}
	return out
}

// Settings returns a copy of the configuration context.
func (r *Registry) Settings() Settings {
	return r.settings
}

// Credentials returns the persisted network target.
func (r *Registry) Credentials() Credentials {
	return r.settings.Network
}

// ---- writes ----

// ApplyUpdate applies a partial update. Keys absent from update are left
// untouched. The whole update is rejected before any write when a key is
// unknown or a value is not finite.
func (r *Registry) ApplyUpdate(update map[string]float64) error {
	// ---- validate everything first: no side effects on rejection ----
	for key, v := range update {
		f, ok := r.schema.Lookup(key)
		if !ok || f.Kind != KindFloat {
			return fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
		if f.Clamp == nil && !finite32(v) {
			return fmt.Errorf("%w: %q", ErrInvalidValue, key)
		}
		if f.Clamp != nil && math.IsNaN(v) {
			return fmt.Errorf("%w: %q", ErrInvalidValue, key)
		}
	}

	// ---- persist + mirror in schema order ----
	derived := false
	for _, f := range r.schema {
		raw, ok := update[f.Key]
		if !ok {
			continue
		}

		v := raw
		if f.Clamp != nil {
			v = f.Clamp(v)
		}
		val := float32(v)

		r.st.WriteFloat32(f.Addr, val)
		*r.settings.scalar(f.Key) = val
		r.verify(f, val)
		r.rec.IncSettingsUpdate(f.Key)

		r.log.Info("setting updated", logging.Field(f.Key), logging.Addr(f.Addr), logging.Value(val))

		if f.Key == KeySOC || f.Key == KeyCapacityAh {
			derived = true
		}
	}

	// source mirrors are final before the derived value is computed
	if derived {
		r.recompute()
	}

	return nil
}

// SetCredentials persists the network target through the string-field path.
func (r *Registry) SetCredentials(c Credentials) error {
	if !c.Valid() {
		return ErrInvalidCredentials
	}

	ssid, ok := r.schema.Lookup(KeyNetworkSSID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, KeyNetworkSSID)
	}
	pass, ok := r.schema.Lookup(KeyNetworkPassword)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, KeyNetworkPassword)
	}

	r.st.WriteString(ssid.Addr, c.SSID, int(ssid.Width))
	r.st.WriteString(pass.Addr, c.Password, int(pass.Width))
	r.settings.Network = c

	r.log.Info("network credentials saved", logging.SSID(c.SSID))
	return nil
}

// ---- boot ----

// Bootstrap loads every field from storage into the mirror, applies clamps
// and recomputes derived state once at the end. Unreadable or non-finite
// scalars keep their current (default) mirror value.
func (r *Registry) Bootstrap() {
	for _, f := range r.schema {
		switch f.Kind {
		case KindFloat:
			v, ok := r.st.ReadFloat32(f.Addr)
			if !ok {
				r.log.Warn("stored value unreadable, keeping default", logging.Field(f.Key), logging.Addr(f.Addr))
				continue
			}
			if !finite32(float64(v)) {
				// erased cells read back as NaN
				r.log.Info("stored value empty, keeping default", logging.Field(f.Key), logging.Addr(f.Addr))
				continue
			}
			if f.Clamp != nil {
				clamped := float32(f.Clamp(float64(v)))
				if clamped != v {
					r.log.Warn("stored value out of range, clamped", logging.Field(f.Key), logging.Value(v))
				}
				v = clamped
			}
			*r.settings.scalar(f.Key) = v

		case KindString:
			s := r.st.ReadString(f.Addr, int(f.Width))
			if !utf8.ValidString(s) {
				// erased cells read back as 0xFF
				s = ""
			}
			*r.settings.text(f.Key) = s
		}
	}

	r.recompute()
	r.log.Info("settings loaded from storage",
		slog.Float64(KeySOC, float64(r.settings.SOC)),
		slog.Float64("total_coulombs", r.settings.TotalCoulombs),
		logging.SSID(r.settings.Network.SSID),
	)
}

// ---- internals ----

func (r *Registry) recompute() {
	r.settings.TotalCoulombs = Coulombs(r.settings.SOC, r.settings.CapacityAh)
}

// verify reads a scalar back after writing it. Mismatches are logged and
// counted; the mirror keeps the requested value.
func (r *Registry) verify(f Field, want float32) {
	got, ok := r.st.ReadFloat32(f.Addr)
	if ok && math.Float32bits(got) == math.Float32bits(want) {
		return
	}
	r.rec.IncVerifyMismatch(f.Key)
	r.log.Warn("read-back mismatch after write",
		logging.Field(f.Key),
		logging.Addr(f.Addr),
		logging.Value(want),
		slog.Float64("read", float64(got)),
		slog.Bool("complete", ok),
	)
}

func finite32(v float64) bool {
	f := float32(v)
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
