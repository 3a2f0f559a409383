package scanner

import (
	"net"
	"reflect"
	"testing"

	"github.com/lukeod/netprint/datamodel"
)

func TestSubnetPrefix(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "Private class C", input: "192.168.1.100", want: "192.168.1"},
		{name: "Private class A", input: "10.0.0.7", want: "10.0.0"},
		{name: "Single digit octets", input: "1.2.3.4", want: "1.2.3"},
		{name: "IPv4-mapped IPv6", input: "::ffff:172.16.5.9", want: "172.16.5"},
		{name: "IPv6 address", input: "fe80::1", wantErr: true},
		{name: "Garbage", input: "not-an-ip", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := subnetPrefix(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("subnetPrefix(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("subnetPrefix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSubnetHosts(t *testing.T) {
	hosts := subnetHosts("192.168.1")

	if len(hosts) != 254 {
		t.Fatalf("Expected 254 hosts, got %d", len(hosts))
	}
	if hosts[0] != "192.168.1.1" {
		t.Errorf("Expected first host 192.168.1.1, got %s", hosts[0])
	}
	if hosts[253] != "192.168.1.254" {
		t.Errorf("Expected last host 192.168.1.254, got %s", hosts[253])
	}

	seen := make(map[string]bool)
	for _, h := range hosts {
		if h == "192.168.1.0" || h == "192.168.1.255" {
			t.Errorf("Network or broadcast address %s must not be swept", h)
		}
		if seen[h] {
			t.Errorf("Duplicate host %s", h)
		}
		seen[h] = true
		if net.ParseIP(h).To4() == nil {
			t.Errorf("Host %s is not a valid IPv4 address", h)
		}
	}
}

func TestExternalSubnets(t *testing.T) {
	tests := []struct {
		name  string
		addrs []datamodel.InterfaceAddress
		want  []string
	}{
		{
			name: "Internal addresses are skipped",
			addrs: []datamodel.InterfaceAddress{
				{Interface: "lo", Address: "127.0.0.1", Internal: true},
				{Interface: "eth0", Address: "10.0.0.7"},
			},
			want: []string{"10.0.0"},
		},
		{
			name: "Shared subnets are swept once",
			addrs: []datamodel.InterfaceAddress{
				{Interface: "eth0", Address: "10.0.0.7"},
				{Interface: "eth0", Address: "10.0.0.8"},
				{Interface: "wlan0", Address: "192.168.1.100"},
				{Interface: "docker0", Address: "10.0.0.200"},
			},
			want: []string{"10.0.0", "192.168.1"},
		},
		{
			name: "Invalid addresses are ignored",
			addrs: []datamodel.InterfaceAddress{
				{Interface: "eth0", Address: "bogus"},
				{Interface: "eth1", Address: "172.16.4.2"},
			},
			want: []string{"172.16.4"},
		},
		{
			name: "Nothing external",
			addrs: []datamodel.InterfaceAddress{
				{Interface: "lo", Address: "127.0.0.1", Internal: true},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := externalSubnets(tt.addrs)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("externalSubnets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeTargets(t *testing.T) {
	targets := probeTargets([]string{"10.0.0", "192.168.1"}, []int{631, 9100})

	if len(targets) != 2*254*2 {
		t.Fatalf("Expected %d targets, got %d", 2*254*2, len(targets))
	}

	first := datamodel.ProbeTarget{Host: "10.0.0.1", Port: 631}
	if targets[0] != first {
		t.Errorf("Expected first target %v, got %v", first, targets[0])
	}

	keys := make(map[string]bool, len(targets))
	for _, target := range targets {
		if keys[target.Key()] {
			t.Errorf("Duplicate target %s", target.Key())
		}
		keys[target.Key()] = true
	}
	if !keys["192.168.1.254:9100"] {
		t.Error("Expected 192.168.1.254:9100 to be a target")
	}
}

func TestIsInternal(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"127.1.2.3", true},
		{"169.254.3.4", true},
		{"10.0.0.1", false},
		{"192.168.1.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isInternal(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("isInternal(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}
