package scan

import (
	"context"
	"net"
	"sync"

	"github.com/google/gopacket/macs"
	"github.com/mostlygeek/arp"
	"golang.org/x/sync/semaphore"
)

// MaxDeviceLookups caps the device lookups LookupDevices runs at once.
const MaxDeviceLookups = 64

// Device is what the local ARP cache and reverse DNS know about a live host.
type Device struct {
	IP           string `json:"ip"`
	MAC          string `json:"mac,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Name         string `json:"name,omitempty"`
}

// LookupDevice enriches a host address with its MAC address, the vendor
// registered for the MAC prefix, and its reverse DNS name. Only hosts on a
// directly attached network have ARP entries; for anything else the Device
// carries just the IP.
func LookupDevice(ctx context.Context, ip string) Device {

	d := Device{IP: ip}

	macStr := arp.Search(ip)
	if macStr == "" || macStr == "00:00:00:00:00:00" {
		return d
	}

	mac, err := net.ParseMAC(macStr)
	if err != nil || len(mac) < 3 {
		return d
	}
	d.MAC = mac.String()

	prefix := [3]byte{
		mac[0],
		mac[1],
		mac[2],
	}

	if manufacturer, ok := macs.ValidMACPrefixMap[prefix]; ok {
		d.Manufacturer = manufacturer
	}

	// only bother looking up hostname for local devices
	if names, err := net.DefaultResolver.LookupAddr(ctx, ip); err == nil && len(names) > 0 {
		d.Name = names[0]
	}

	return d
}

// LookupDevices runs LookupDevice for every address, preserving order, with
// at most MaxDeviceLookups in flight. Once ctx is done the remaining hosts
// are reported with just their IP.
func LookupDevices(ctx context.Context, ips []string) []Device {

	devices := make([]Device, len(ips))
	for i, ip := range ips {
		devices[i] = Device{IP: ip}
	}

	sem := semaphore.NewWeighted(MaxDeviceLookups)
	wg := &sync.WaitGroup{}

	for i, ip := range ips {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, ip string) {
			defer wg.Done()
			defer sem.Release(1)
			devices[i] = LookupDevice(ctx, ip)
		}(i, ip)
	}

	wg.Wait()
	return devices
}
