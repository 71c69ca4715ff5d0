// Package host supplies the machine-local credentials a license can be bound
// to: the hardware id of a network adapter and a password typed at a terminal.
package host

import (
	"errors"
	"fmt"
	"net"
	"sort"

	"github.com/jmcleod/bequest/crypto"
)

// ErrNoHardwareID is returned when no network interface has a usable
// hardware address.
var ErrNoHardwareID = errors.New("no network interface with a hardware address")

// HardwareID returns the normalised hardware address of the local machine's
// primary network adapter. Up, non-loopback interfaces win; otherwise any
// interface with an address is used. Ties are broken by interface name so the
// result is stable across calls.
func HardwareID() (string, error) {
	return hardwareIDFrom(net.Interfaces)
}

func hardwareIDFrom(list func() ([]net.Interface, error)) (string, error) {
	ifaces, err := list()
	if err != nil {
		return "", fmt.Errorf("listing network interfaces: %w", err)
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Name < ifaces[j].Name })

	if mac := firstAddr(ifaces, func(iface net.Interface) bool {
		return iface.Flags&net.FlagLoopback == 0 && iface.Flags&net.FlagUp != 0
	}); mac != "" {
		return mac, nil
	}
	if mac := firstAddr(ifaces, func(net.Interface) bool { return true }); mac != "" {
		return mac, nil
	}
	return "", ErrNoHardwareID
}

func firstAddr(ifaces []net.Interface, keep func(net.Interface) bool) string {
	for _, iface := range ifaces {
		if !keep(iface) || !usableAddr(iface.HardwareAddr) {
			continue
		}
		return crypto.NormalizeHardwareID(iface.HardwareAddr.String())
	}
	return ""
}

func usableAddr(addr net.HardwareAddr) bool {
	for _, b := range addr {
		if b != 0 {
			return true
		}
	}
	return false
}
