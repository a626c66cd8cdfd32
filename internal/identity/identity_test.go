package identity

import "testing"

func TestRoundTrip(t *testing.T) {
	codec := New("BUS_")

	for _, route := range []string{"721", "2016", "N62", "마포08", ""} {
		name := codec.DeviceName(route)
		got, ok := codec.RouteNumber(name)
		if !ok {
			t.Errorf("RouteNumber(%q) reported no prefix", name)
			continue
		}
		if got != route {
			t.Errorf("RouteNumber(DeviceName(%q)) = %q", route, got)
		}
	}
}

func TestRouteNumberRejectsForeignNames(t *testing.T) {
	codec := New("BUS_")

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"other vendor", "MBeacon-721"},
		{"lowercase prefix", "bus_721"},
		{"prefix in the middle", "X-BUS_721"},
		{"partial prefix", "BUS"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got, ok := codec.RouteNumber(tc.in); ok {
				t.Errorf("RouteNumber(%q) = %q, want no match", tc.in, got)
			}
		})
	}
}

func TestDeviceName(t *testing.T) {
	if got := New("BUS_").DeviceName("721"); got != "BUS_721" {
		t.Errorf("DeviceName = %q, want BUS_721", got)
	}
}
