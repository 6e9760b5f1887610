package tty

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Kind groups serial devices by the driver family that names them
type Kind int

const (
	KindAll Kind = iota
	KindUSB
	KindStandard
	KindARM
)

type devicePattern struct {
	re          *regexp.Regexp
	kind        Kind
	description string
}

var devicePatterns = []devicePattern{
	{regexp.MustCompile(`^ttyUSB\d+$`), KindUSB, "USB Serial Port"},
	{regexp.MustCompile(`^ttyACM\d+$`), KindUSB, "USB CDC/ACM Device"},
	{regexp.MustCompile(`^ttyGS\d+$`), KindUSB, "USB Gadget Serial"},
	{regexp.MustCompile(`^ttyS\d+$`), KindStandard, "Standard Serial Port"},
	{regexp.MustCompile(`^ttyAMA\d+$`), KindARM, "ARM Serial Port"},
	{regexp.MustCompile(`^ttymxc\d+$`), KindARM, "i.MX Serial Port"},
	{regexp.MustCompile(`^ttyO\d+$`), KindARM, "OMAP Serial Port"},
	{regexp.MustCompile(`^ttySAC\d+$`), KindARM, "Samsung Serial Port"},
	{regexp.MustCompile(`^ttyTHS\d+$`), KindARM, "Tegra Serial Port"},
}

// ParseKind maps a filter name to a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return KindAll, nil
	case "usb":
		return KindUSB, nil
	case "standard":
		return KindStandard, nil
	case "arm":
		return KindARM, nil
	default:
		return KindAll, ErrInvalidConfig
	}
}

func classify(name string) (devicePattern, bool) {
	for _, p := range devicePatterns {
		if p.re.MatchString(name) {
			return p, true
		}
	}
	return devicePattern{}, false
}

// ListPorts returns the serial character devices under /dev matching kind
func ListPorts(kind Kind) ([]string, error) {
	return listPorts("/dev", kind)
}

func listPorts(devDir string, kind Kind) ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		p, ok := classify(entry.Name())
		if !ok || (kind != KindAll && p.kind != kind) {
			continue
		}
		fullPath := filepath.Join(devDir, entry.Name())
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a serial device
type PortInfo struct {
	Name         string
	Path         string
	Kind         Kind
	Description  string
	VendorID     string
	ProductID    string
	Manufacturer string
	Product      string
	SerialNumber string
}

// sysClassTTY is where the kernel exposes tty device links
var sysClassTTY = "/sys/class/tty"

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{Name: name, Path: portPath, Description: "Serial Port"}
	if p, ok := classify(name); ok {
		info.Kind = p.kind
		info.Description = p.description
	}
	if info.Kind == KindUSB {
		enrichUSBInfo(info, filepath.Join(sysClassTTY, name, "device"))
	}
	return info, nil
}

// enrichUSBInfo walks up from the tty's sysfs device node to the USB
// device that carries idVendor and idProduct.
func enrichUSBInfo(info *PortInfo, devLink string) {
	dir, err := filepath.EvalSymlinks(devLink)
	if err != nil {
		return
	}
	for i := 0; i < 4 && dir != "/" && dir != "."; i++ {
		if vid := readSysfsFile(dir, "idVendor"); vid != "" {
			info.VendorID = vid
			info.ProductID = readSysfsFile(dir, "idProduct")
			info.Manufacturer = readSysfsFile(dir, "manufacturer")
			info.Product = readSysfsFile(dir, "product")
			info.SerialNumber = readSysfsFile(dir, "serial")
			return
		}
		dir = filepath.Dir(dir)
	}
}

func readSysfsFile(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
