package tty

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts(KindAll)
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	for _, port := range ports {
		if !strings.HasPrefix(port, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port)
		}
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}
	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

// fakeDevDir links serial-looking names to /dev/null so they stat as
// character devices
func fakeDevDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.Symlink("/dev/null", filepath.Join(dir, name)); err != nil {
			t.Skipf("cannot create device links: %v", err)
		}
	}
	return dir
}

func TestListPortsFiltersByKind(t *testing.T) {
	dir := fakeDevDir(t, "ttyUSB1", "ttyUSB0", "ttyACM0", "ttyS0", "ttyAMA0", "tty1", "console", "ptmx", "random")
	if err := os.WriteFile(filepath.Join(dir, "ttyS9"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		kind Kind
		want []string
	}{
		{KindAll, []string{"ttyACM0", "ttyAMA0", "ttyS0", "ttyUSB0", "ttyUSB1"}},
		{KindUSB, []string{"ttyACM0", "ttyUSB0", "ttyUSB1"}},
		{KindStandard, []string{"ttyS0"}},
		{KindARM, []string{"ttyAMA0"}},
	}

	for _, tt := range tests {
		ports, err := listPorts(dir, tt.kind)
		if err != nil {
			t.Fatalf("listPorts failed: %v", err)
		}
		var names []string
		for _, p := range ports {
			names = append(names, filepath.Base(p))
		}
		if !reflect.DeepEqual(names, tt.want) {
			t.Errorf("kind %d: got %v, want %v", tt.kind, names, tt.want)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{"": KindAll, "all": KindAll, "USB": KindUSB, "standard": KindStandard, "arm": KindARM}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("pci"); err != ErrInvalidConfig {
		t.Errorf("ParseKind(pci) error = %v", err)
	}
}

func TestPortDescriptions(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyGS0", "USB Gadget Serial"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
	}

	for _, test := range tests {
		p, ok := classify(test.name)
		if !ok || p.description != test.expected {
			t.Errorf("classify(%s) = %q, expected %q", test.name, p.description, test.expected)
		}
	}
	if _, ok := classify("tty1"); ok {
		t.Error("virtual terminal classified as serial port")
	}
}

func TestGetPortInfo(t *testing.T) {
	info, err := GetPortInfo("/dev/null")
	if err != nil {
		t.Fatalf("GetPortInfo failed for /dev/null: %v", err)
	}
	if info.Name != "null" || info.Path != "/dev/null" || info.Description != "Serial Port" {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := GetPortInfo("/dev/nonexistent"); err != ErrDeviceNotFound {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestEnrichUSBInfo(t *testing.T) {
	root := t.TempDir()
	usbDev := filepath.Join(root, "usb1", "1-2")
	iface := filepath.Join(usbDev, "1-2:1.0")
	if err := os.MkdirAll(filepath.Join(iface, "ttyUSB0"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"idVendor":     "0403\n",
		"idProduct":    "6001\n",
		"manufacturer": "FTDI\n",
		"product":      "FT232R USB UART\n",
		"serial":       "A50285BI\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(usbDev, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	link := filepath.Join(root, "device")
	if err := os.Symlink(filepath.Join(iface, "ttyUSB0"), link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	info := &PortInfo{}
	enrichUSBInfo(info, link)

	if info.VendorID != "0403" || info.ProductID != "6001" {
		t.Errorf("VID:PID = %s:%s", info.VendorID, info.ProductID)
	}
	if info.Manufacturer != "FTDI" || info.SerialNumber != "A50285BI" {
		t.Errorf("unexpected info: %+v", info)
	}
}
