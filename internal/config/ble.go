package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultScanTimeout bounds how long a notification attempt scans for its bus
const DefaultScanTimeout = 10 * time.Second

// BLEConfig is the GATT surface exposed by bus-mounted receivers
type BLEConfig struct {
	ServiceUUID          string `yaml:"service_uuid" validate:"required,uuid"`
	RXCharacteristicUUID string `yaml:"rx_characteristic_uuid" validate:"required,uuid"`
	TXCharacteristicUUID string `yaml:"tx_characteristic_uuid" validate:"omitempty,uuid"`
	DeviceNamePrefix     string `yaml:"device_name_prefix" validate:"required"`
	CourtesySeatMessage  string `yaml:"courtesy_seat_message" validate:"required"`
	ScanTimeoutSeconds   int    `yaml:"scan_timeout_seconds" validate:"gte=0"`
}

// LoadBLE reads the protocol file at path, then applies environment overrides.
// A missing file is not an error; Validate reports whatever is still unset.
func LoadBLE(path string) (BLEConfig, error) {
	var cfg BLEConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return BLEConfig{}, &ConfigurationError{Field: path, Reason: fmt.Sprintf("invalid yaml: %v", err)}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return BLEConfig{}, fmt.Errorf("reading BLE config: %w", err)
	}

	cfg.ServiceUUID = getEnv("BUS_SERVICE_UUID", cfg.ServiceUUID)
	cfg.RXCharacteristicUUID = getEnv("RX_CHARACTERISTIC_UUID", cfg.RXCharacteristicUUID)
	cfg.TXCharacteristicUUID = getEnv("TX_CHARACTERISTIC_UUID", cfg.TXCharacteristicUUID)
	cfg.DeviceNamePrefix = getEnv("DEVICE_NAME_PREFIX", cfg.DeviceNamePrefix)
	cfg.CourtesySeatMessage = getEnv("COURTESY_SEAT_MESSAGE", cfg.CourtesySeatMessage)
	if secs := getDurationEnv("SCAN_TIMEOUT_SECONDS", -1); secs >= 0 {
		cfg.ScanTimeoutSeconds = int(secs)
	}

	// The validator's uuid tag only accepts lowercase hex
	cfg.ServiceUUID = strings.ToLower(strings.TrimSpace(cfg.ServiceUUID))
	cfg.RXCharacteristicUUID = strings.ToLower(strings.TrimSpace(cfg.RXCharacteristicUUID))
	cfg.TXCharacteristicUUID = strings.ToLower(strings.TrimSpace(cfg.TXCharacteristicUUID))

	return cfg, nil
}

// Validate checks the protocol settings and reports the first problem found.
func (c BLEConfig) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return &ConfigurationError{Field: fe.Field(), Reason: reason}
		}
		return &ConfigurationError{Field: "ble", Reason: err.Error()}
	}

	if !utf8.ValidString(c.CourtesySeatMessage) {
		return &ConfigurationError{Field: "courtesy_seat_message", Reason: "must be valid UTF-8"}
	}
	return nil
}

// ScanTimeout returns the configured scan window, defaulting to ten seconds
func (c BLEConfig) ScanTimeout() time.Duration {
	if c.ScanTimeoutSeconds <= 0 {
		return DefaultScanTimeout
	}
	return time.Duration(c.ScanTimeoutSeconds) * time.Second
}

// ServiceID returns the parsed service UUID. Call only after Validate.
func (c BLEConfig) ServiceID() uuid.UUID {
	return uuid.MustParse(c.ServiceUUID)
}

// RXCharacteristicID returns the parsed receive characteristic UUID. Call only after Validate.
func (c BLEConfig) RXCharacteristicID() uuid.UUID {
	return uuid.MustParse(c.RXCharacteristicUUID)
}
