package genlayer

import (
	"fmt"
	"strings"
	"time"
)

// Config 描述 GenLayer RPC 端点与合约的访问方式。
type Config struct {
	Endpoint        string
	ContractAddress string
	// Account is the sender address derived from the operator key. The key
	// itself never leaves the signer; the client only needs the address.
	Account string
	Timeout time.Duration

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 2 * time.Minute
	}
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("genlayer: endpoint is required")
	}
	if strings.TrimSpace(c.ContractAddress) == "" {
		return fmt.Errorf("genlayer: contract address is required")
	}
	return nil
}
