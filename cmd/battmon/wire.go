// cmd/battmon/wire.go
package main

import (
	"fmt"
	"net/netip"

	"github.com/tamzrod/battmon/internal/config"
	"github.com/tamzrod/battmon/internal/eeprom"
	"github.com/tamzrod/battmon/internal/eeprom/i2c"
	eepmodbus "github.com/tamzrod/battmon/internal/eeprom/modbus"
	"github.com/tamzrod/battmon/internal/wifi"
	"github.com/tamzrod/battmon/internal/wifi/wpa"
)

// openBus selects the storage backend. Config must be validated and
// normalized.
func openBus(c config.StorageConfig) (eeprom.Device, error) {
	switch c.Driver {
	case config.DriverMemory:
		if c.ImagePath == "" {
			return eeprom.NewMemory(c.Size), nil
		}
		m, err := eeprom.OpenImage(c.ImagePath, c.Size)
		if err != nil {
			return nil, err
		}
		return m, nil

	case config.DriverI2C:
		b, err := i2c.Open(i2c.Config{
			Device:   c.I2C.Device,
			Address:  c.I2C.Address,
			PageSize: c.I2C.PageSize,
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	case config.DriverModbus:
		b, err := eepmodbus.New(eepmodbus.Config{
			Endpoint: c.Modbus.Endpoint,
			UnitID:   c.Modbus.UnitID,
			Timeout:  c.Modbus.Timeout(),
			BaudRate: c.Modbus.BaudRate,
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.Driver)
	}
}

// openLink selects the radio backend.
func openLink(c config.WiFiConfig) (wifi.Link, error) {
	switch c.Driver {
	case config.DriverSim:
		addr, err := netip.ParseAddr(c.Sim.Address)
		if err != nil {
			return nil, fmt.Errorf("wifi sim address: %w", err)
		}
		return wifi.NewSim(wifi.SimConfig{
			JoinAfter:  c.Sim.JoinAfter(),
			Addr:       addr,
			AcceptSSID: c.Sim.AcceptSSID,
		}, nil), nil

	case config.DriverWPA:
		l, err := wpa.Dial(wpa.Config{CtrlPath: c.WPA.CtrlPath})
		if err != nil {
			return nil, err
		}
		return l, nil

	default:
		return nil, fmt.Errorf("unknown wifi driver %q", c.Driver)
	}
}
