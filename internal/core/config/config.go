package config

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v2"
)

// Profile names a fleet: either a config document URL or an inline
// node list.
type Profile struct {
	ConfigURL string     `yaml:"config_url"`
	Nodes     []NodeAddr `yaml:"nodes"`
	LogLevel  string     `yaml:"log_level"` // debug, info, warn, error
}

// NodeAddr is one node's network address.
type NodeAddr struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// profilesFile is the shape of an optional profiles YAML file.
type profilesFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// DefaultProfiles returns the built-in network profiles.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"mainnet": {ConfigURL: "https://ton.org/global.config.json"},
		"testnet": {ConfigURL: "https://ton-blockchain.github.io/testnet-global.config.json"},
	}
}

// LoadProfiles returns the built-in profiles, overlaid with the given
// YAML file if path is non-empty. Environment variables in the file
// are expanded.
func LoadProfiles(path string) (map[string]Profile, error) {
	profiles := DefaultProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var pf profilesFile
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &pf); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for name, p := range pf.Profiles {
		profiles[name] = p
	}
	return profiles, nil
}

// FleetDoc is the JSON fleet config document (global config format).
type FleetDoc struct {
	Liteservers []Liteserver `json:"liteservers"`
}

// Liteserver is one entry in a fleet config document. IP is the
// big-endian signed 32-bit integer form used by global configs.
type Liteserver struct {
	IP   int64 `json:"ip"`
	Port int   `json:"port"`
}

// Addr converts the integer IP form to a host:port address.
func (l Liteserver) Addr() NodeAddr {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, uint32(int32(l.IP)))
	return NodeAddr{Host: ip.String(), Port: l.Port}
}
