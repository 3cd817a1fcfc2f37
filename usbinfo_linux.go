//go:build linux

package serial

import (
	"os"
	"path/filepath"
	"strings"
)

// sysClassTTY is where the kernel exposes tty devices.
var sysClassTTY = "/sys/class/tty"

// enrichUSBInfo fills the USB fields of info from sysfs. It walks up from
// the tty's device directory until it finds the USB device that carries
// idVendor. Missing attributes are left empty.
func enrichUSBInfo(info *PortInfo) {
	dev, err := filepath.EvalSymlinks(filepath.Join(sysClassTTY, info.Name, "device"))
	if err != nil {
		return
	}

	// ttyUSB devices hang off a usb-serial port below the interface.
	iface := dev
	for i := 0; i < 4 && iface != "/" && iface != "."; i++ {
		if _, err := os.Stat(filepath.Join(iface, "bInterfaceNumber")); err == nil {
			info.InterfaceNumber = readAttr(iface, "bInterfaceNumber")
			break
		}
		iface = filepath.Dir(iface)
	}

	usb := dev
	for i := 0; i < 5 && usb != "/" && usb != "."; i++ {
		if _, err := os.Stat(filepath.Join(usb, "idVendor")); err == nil {
			break
		}
		usb = filepath.Dir(usb)
	}
	if readAttr(usb, "idVendor") == "" {
		return
	}

	info.VendorID = readAttr(usb, "idVendor")
	info.ProductID = readAttr(usb, "idProduct")
	info.SerialNumber = readAttr(usb, "serial")
	info.Manufacturer = readAttr(usb, "manufacturer")
	info.Product = readAttr(usb, "product")
	info.BusNumber = readAttr(usb, "busnum")
	info.DeviceNumber = readAttr(usb, "devnum")
	if info.Product != "" {
		info.Description = info.Product
	}
}

func readAttr(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
