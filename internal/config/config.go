// internal/config/config.go
package config

import "time"

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Storage      StorageConfig      `yaml:"storage"`
	WiFi         WiFiConfig         `yaml:"wifi"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Log          LogConfig          `yaml:"log"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// ---- STORAGE ----

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverI2C    = "i2c"
	DriverModbus = "modbus"
)

type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Size      int    `yaml:"size"`
	SettleMs  int    `yaml:"settle_ms"`
	ImagePath string `yaml:"image_path"` // memory driver only; empty keeps the image in RAM

	I2C    I2CConfig    `yaml:"i2c"`
	Modbus ModbusConfig `yaml:"modbus"`
}

func (s StorageConfig) SettleDelay() time.Duration {
	return time.Duration(s.SettleMs) * time.Millisecond
}

type I2CConfig struct {
	Device   string `yaml:"device"`
	Address  uint8  `yaml:"address"`   // 7-bit
	PageSize int    `yaml:"page_size"` // write page in bytes
}

type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"` // tcp://host:port or rtu:///dev/tty...
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
	BaudRate  int    `yaml:"baud_rate"` // rtu only
}

func (m ModbusConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// ---- WIFI ----

// WiFi drivers.
const (
	DriverSim = "sim"
	DriverWPA = "wpa"
)

type WiFiConfig struct {
	Driver string    `yaml:"driver"`
	Sim    SimConfig `yaml:"sim"`
	WPA    WPAConfig `yaml:"wpa"`
}

type SimConfig struct {
	JoinAfterMs int    `yaml:"join_after_ms"`
	Address     string `yaml:"address"`
	AcceptSSID  string `yaml:"accept_ssid"` // empty: any SSID joins
}

func (s SimConfig) JoinAfter() time.Duration {
	return time.Duration(s.JoinAfterMs) * time.Millisecond
}

type WPAConfig struct {
	CtrlPath string `yaml:"ctrl_path"`
}

// ---- PROVISIONING ----

type ProvisioningConfig struct {
	JoinTimeoutMs  int `yaml:"join_timeout_ms"`
	PollIntervalMs int `yaml:"poll_interval_ms"`
	GraceMs        int `yaml:"grace_ms"`
}

func (p ProvisioningConfig) JoinTimeout() time.Duration {
	return time.Duration(p.JoinTimeoutMs) * time.Millisecond
}

func (p ProvisioningConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

func (p ProvisioningConfig) Grace() time.Duration {
	return time.Duration(p.GraceMs) * time.Millisecond
}

// ---- LOG ----

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // rotating file sink when set
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	RingLines  int    `yaml:"ring_lines"`
}

// Default returns the configuration of a stock device.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Listen: ":80"},
		Storage: StorageConfig{
			Driver:   DriverMemory,
			Size:     4096,
			SettleMs: 5,
			I2C: I2CConfig{
				Device:   "/dev/i2c-1",
				Address:  0x57,
				PageSize: 32,
			},
			Modbus: ModbusConfig{
				Endpoint:  "tcp://127.0.0.1:502",
				UnitID:    1,
				TimeoutMs: 1000,
				BaudRate:  9600,
			},
		},
		WiFi: WiFiConfig{
			Driver: DriverSim,
			Sim: SimConfig{
				JoinAfterMs: 3000,
				Address:     "192.168.1.50",
			},
			WPA: WPAConfig{CtrlPath: "/var/run/wpa_supplicant/wlan0"},
		},
		Provisioning: ProvisioningConfig{
			JoinTimeoutMs:  20000,
			PollIntervalMs: 10,
			GraceMs:        1500,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
			RingLines:  50,
		},
	}
}
