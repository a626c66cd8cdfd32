package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
service_uuid: 6E400001-B5A3-F393-E0A9-E50E24DCCA9E
rx_characteristic_uuid: 6e400002-b5a3-f393-e0a9-e50e24dcca9e
tx_characteristic_uuid: 6e400003-b5a3-f393-e0a9-e50e24dcca9e
device_name_prefix: BUS_
courtesy_seat_message: 배려석 알림
`

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ble.yml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBLEFromFile(t *testing.T) {
	cfg, err := LoadBLE(writeFile(t, validYAML))
	if err != nil {
		t.Fatalf("LoadBLE: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.ServiceUUID != "6e400001-b5a3-f393-e0a9-e50e24dcca9e" {
		t.Errorf("ServiceUUID = %q, want lowercased", cfg.ServiceUUID)
	}
	if cfg.ServiceID().String() != cfg.ServiceUUID {
		t.Errorf("ServiceID = %s", cfg.ServiceID())
	}
	if cfg.DeviceNamePrefix != "BUS_" {
		t.Errorf("DeviceNamePrefix = %q", cfg.DeviceNamePrefix)
	}
	if cfg.ScanTimeout() != DefaultScanTimeout {
		t.Errorf("ScanTimeout = %v, want %v", cfg.ScanTimeout(), DefaultScanTimeout)
	}
}

func TestLoadBLEEnvOverrides(t *testing.T) {
	t.Setenv("DEVICE_NAME_PREFIX", "SEAT-")
	t.Setenv("SCAN_TIMEOUT_SECONDS", "3")

	cfg, err := LoadBLE(writeFile(t, validYAML))
	if err != nil {
		t.Fatalf("LoadBLE: %v", err)
	}
	if cfg.DeviceNamePrefix != "SEAT-" {
		t.Errorf("DeviceNamePrefix = %q, want SEAT-", cfg.DeviceNamePrefix)
	}
	if cfg.ScanTimeout() != 3*time.Second {
		t.Errorf("ScanTimeout = %v, want 3s", cfg.ScanTimeout())
	}
}

func TestBLEValidateMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			"no service uuid",
			"rx_characteristic_uuid: 6e400002-b5a3-f393-e0a9-e50e24dcca9e\ndevice_name_prefix: BUS_\ncourtesy_seat_message: hi\n",
			"service_uuid",
		},
		{
			"bad rx uuid",
			"service_uuid: 6e400001-b5a3-f393-e0a9-e50e24dcca9e\nrx_characteristic_uuid: not-a-uuid\ndevice_name_prefix: BUS_\ncourtesy_seat_message: hi\n",
			"rx_characteristic_uuid",
		},
		{
			"no prefix",
			"service_uuid: 6e400001-b5a3-f393-e0a9-e50e24dcca9e\nrx_characteristic_uuid: 6e400002-b5a3-f393-e0a9-e50e24dcca9e\ncourtesy_seat_message: hi\n",
			"device_name_prefix",
		},
		{
			"no message",
			"service_uuid: 6e400001-b5a3-f393-e0a9-e50e24dcca9e\nrx_characteristic_uuid: 6e400002-b5a3-f393-e0a9-e50e24dcca9e\ndevice_name_prefix: BUS_\n",
			"courtesy_seat_message",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadBLE(writeFile(t, tc.yaml))
			if err != nil {
				t.Fatalf("LoadBLE: %v", err)
			}

			err = cfg.Validate()
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate error = %v, want *ConfigurationError", err)
			}
			if cerr.Field != tc.field {
				t.Errorf("Field = %q, want %q", cerr.Field, tc.field)
			}
		})
	}
}

func TestLoadBLEMissingFile(t *testing.T) {
	cfg, err := LoadBLE(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadBLE: %v", err)
	}

	var cerr *ConfigurationError
	if !errors.As(cfg.Validate(), &cerr) {
		t.Error("expected a configuration error for an empty protocol config")
	}
}

func TestLoadBLEInvalidYAML(t *testing.T) {
	_, err := LoadBLE(writeFile(t, "service_uuid: [unterminated"))

	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("error = %v, want *ConfigurationError", err)
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BLE_CONFIG", writeFile(t, validYAML))
	t.Setenv("PORT", "8080")
	t.Setenv("CACHE_TTL_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.CacheTTL != 5*time.Second {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.ArrivalURL != defaultArrivalURL {
		t.Errorf("ArrivalURL = %q", cfg.ArrivalURL)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{Port: "http", StopsFile: "stops.csv"}

	var cerr *ConfigurationError
	if !errors.As(cfg.Validate(), &cerr) || cerr.Field != "PORT" {
		t.Errorf("expected PORT configuration error, got %v", cerr)
	}
}
