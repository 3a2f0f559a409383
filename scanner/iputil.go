package scanner

import (
	"fmt"
	"net"
	"strings"

	"github.com/lukeod/netprint/datamodel"
)

// SystemInterfaces reads the IPv4 addresses bound to local interfaces.
func SystemInterfaces() ([]datamodel.InterfaceAddress, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var result []datamodel.InterfaceAddress
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}
			result = append(result, datamodel.InterfaceAddress{
				Interface: iface.Name,
				Address:   ip4.String(),
				Internal:  iface.Flags&net.FlagLoopback != 0 || isInternal(ip4),
			})
		}
	}
	return result, nil
}

// isInternal reports loopback and link-local addresses
func isInternal(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsLinkLocalUnicast()
}

// externalSubnets returns the distinct /24 prefixes of the external IPv4 addresses,
// in first-seen order.
func externalSubnets(addrs []datamodel.InterfaceAddress) []string {
	seen := make(map[string]bool)
	var subnets []string
	for _, a := range addrs {
		if a.Internal {
			continue
		}
		prefix, err := subnetPrefix(a.Address)
		if err != nil {
			continue
		}
		if seen[prefix] {
			continue
		}
		seen[prefix] = true
		subnets = append(subnets, prefix)
	}
	return subnets
}

// subnetPrefix returns the first three dotted octets of an IPv4 address.
func subnetPrefix(address string) (string, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("address '%s' is not a valid IPv4 address", address)
	}
	octets := strings.Split(ip.To4().String(), ".")
	return strings.Join(octets[:3], "."), nil
}

// subnetHosts lists the host addresses .1 through .254 of a /24 prefix;
// the network and broadcast addresses are excluded.
func subnetHosts(prefix string) []string {
	hosts := make([]string, 0, 254)
	for i := 1; i < 255; i++ {
		hosts = append(hosts, fmt.Sprintf("%s.%d", prefix, i))
	}
	return hosts
}

// probeTargets expands every subnet into (host, port) pairs.
func probeTargets(subnets []string, ports []int) []datamodel.ProbeTarget {
	targets := make([]datamodel.ProbeTarget, 0, len(subnets)*254*len(ports))
	for _, subnet := range subnets {
		for _, host := range subnetHosts(subnet) {
			for _, port := range ports {
				targets = append(targets, datamodel.ProbeTarget{Host: host, Port: port})
			}
		}
	}
	return targets
}
