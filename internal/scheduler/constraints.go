package scheduler

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/net"
)

// Constraint gates whether a registration may run.
type Constraint interface {
	Name() string
	Satisfied(ctx context.Context) bool
}

// ConstraintFunc adapts a function into a named Constraint.
type ConstraintFunc struct {
	ConstraintName string
	Check          func(ctx context.Context) bool
}

// Name returns the constraint name.
func (c ConstraintFunc) Name() string { return c.ConstraintName }

// Satisfied runs the check.
func (c ConstraintFunc) Satisfied(ctx context.Context) bool { return c.Check(ctx) }

// NetworkConstraint is satisfied while a non-loopback interface is up and has an address.
type NetworkConstraint struct {
	logger     zerolog.Logger
	interfaces func() ([]net.InterfaceStat, error)
}

// NewNetworkConstraint creates a NetworkConstraint backed by the host's interface table.
func NewNetworkConstraint(logger zerolog.Logger) *NetworkConstraint {
	return &NetworkConstraint{
		logger:     logger,
		interfaces: func() ([]net.InterfaceStat, error) { return net.Interfaces() },
	}
}

// Name returns the identifier for the network constraint.
func (n *NetworkConstraint) Name() string {
	return "network_connected"
}

// Satisfied reports whether any usable network interface is available.
func (n *NetworkConstraint) Satisfied(_ context.Context) bool {
	ifaces, err := n.interfaces()
	if err != nil {
		n.logger.Error().Err(err).Msg("Failed to list network interfaces")
		return false
	}

	for _, iface := range ifaces {
		if usable(iface) {
			return true
		}
	}
	n.logger.Debug().Int("interfaces", len(ifaces)).Msg("No connected network interface found")
	return false
}

func usable(iface net.InterfaceStat) bool {
	up := false
	for _, flag := range iface.Flags {
		switch flag {
		case "loopback":
			return false
		case "up":
			up = true
		}
	}
	return up && len(iface.Addrs) > 0
}
