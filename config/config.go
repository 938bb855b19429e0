package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// TLSConfig holds paths to the PEM files needed for mTLS between this
// node and its bootstrap peers. When nil or all paths empty, the node
// falls back to plain TCP.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // node certificate PEM path
	NodeKey  string `json:"node_key"`  // node private key PEM path
}

// Config holds all node configuration.
type Config struct {
	NodeID  string `json:"node_id"`
	DataDir string `json:"data_dir"`

	// ListenAddr is where transport.Server accepts bulk_pull requests
	// from other nodes bootstrapping off this one. Empty disables
	// serving entirely (bootstrap-client-only node).
	ListenAddr string `json:"listen_addr,omitempty"`

	// StatusAddr is where statusd serves /status and /metrics.
	StatusAddr string `json:"status_addr"`

	// BootstrapPeers lists addresses ascending.Attempt dials, round
	// robin, via transport.TCPDialer.
	BootstrapPeers []string `json:"bootstrap_peers,omitempty"`

	// MaxInFlight, MaxBlocksPerRequest, ForwardSendDestination mirror
	// ascending.Options directly; see ascending/options.go for the
	// semantics each knob controls.
	MaxInFlight            int  `json:"max_in_flight"`
	MaxBlocksPerRequest    uint `json:"max_blocks_per_request"`
	ForwardSendDestination bool `json:"forward_send_destination"`

	// BackoffExclusion mirrors selection.Set's candidate draw width; see
	// selection/set.go's defaultBackoffExclusion for the semantics.
	BackoffExclusion int `json:"backoff_exclusion"`

	// StatsInterval is how many bulk_pull requests elapse between
	// ascending's periodic progress log lines. Zero disables them.
	StatsInterval int `json:"stats_interval"`

	TLS *TLSConfig `json:"tls,omitempty"` // nil → plain TCP
}

// DefaultConfig returns a single-node development configuration: no
// seed peers configured, so ascending.Attempt's Dial immediately
// returns transport.ErrNoPeer and the attempt stops cleanly.
func DefaultConfig() *Config {
	return &Config{
		NodeID:                 "node0",
		DataDir:                "./data",
		StatusAddr:             "127.0.0.1:7080",
		MaxInFlight:            1,
		MaxBlocksPerRequest:    16,
		ForwardSendDestination: true,
		StatsInterval:          10000,
		BackoffExclusion:       16,
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.StatusAddr == "" {
		return fmt.Errorf("status_addr must not be empty")
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("max_in_flight must be positive, got %d", c.MaxInFlight)
	}
	if c.MaxBlocksPerRequest == 0 {
		return fmt.Errorf("max_blocks_per_request must be positive")
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
