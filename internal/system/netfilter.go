package system

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/execrun"
)

// linkedChain is one (system_chain, vagabond_chain) pair that gets a jump
// installed into the system chain, mirroring the :CHAIN/-A pairing that
// ap.networkd's iptablesReset built into an iptables-restore file — except
// here each chain is managed individually with iptables(8), since the system
// chains (INPUT/FORWARD/OUTPUT/PREROUTING/POSTROUTING) are not ours to own:
// we only flush our own chain and add a jump into theirs if one isn't
// already there.
type linkedChain struct {
	table    string
	sysChain string
	vagabond string
}

var filterChains = []linkedChain{
	{"filter", "INPUT", "vagabond-input"},
	{"filter", "FORWARD", "vagabond-forward"},
	{"filter", "OUTPUT", "vagabond-output"},
}

var natChains = []linkedChain{
	{"nat", "PREROUTING", "vagabond-prerouting"},
	{"nat", "INPUT", "vagabond-input"},
	{"nat", "OUTPUT", "vagabond-output"},
	{"nat", "POSTROUTING", "vagabond-postrouting"},
}

// internalInterfaces returns the interface names §4.4(b) step 4 requires:
// LAN, WLAN, and WireGuard, each only when enabled.
func internalInterfaces(cfg *config.Config) []string {
	var out []string
	if cfg.Network.Lan.Enabled {
		out = append(out, cfg.Network.Lan.Interface)
	}
	if cfg.Network.Wlan.Enabled {
		out = append(out, cfg.Network.Wlan.Interface)
	}
	if cfg.Wireguard.Enabled {
		out = append(out, cfg.Wireguard.Interface)
	}
	return out
}

// masqueradeInterfaces returns every interface that should NAT egress
// traffic: every configured WAN plus WireGuard, per §4.4(b) step 6.
func masqueradeInterfaces(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Network.Wan)+1)
	for _, wan := range cfg.Network.Wan {
		out = append(out, wan.Interface)
	}
	if cfg.Wireguard.Enabled {
		out = append(out, cfg.Wireguard.Interface)
	}
	return out
}

// ApplyNetfilter builds and installs the full rule graph described in
// §4.4(b). It is idempotent: re-running flushes and rebuilds every
// vagabond-owned chain from scratch, and only appends a jump into a system
// chain if one is not already present.
func ApplyNetfilter(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	if cfg.Wireguard.Enabled && cfg.Wireguard.Interface == "" {
		return errors.New("netfilter: wireguard enabled with no interface name")
	}

	for _, policy := range []struct{ chain, target string }{
		{"INPUT", "DROP"},
		{"OUTPUT", "ACCEPT"},
		{"FORWARD", "ACCEPT"},
	} {
		if _, err := execrun.Run(ctx, "iptables", "-t", "filter", "-P", policy.chain, policy.target); err != nil {
			return errors.Wrapf(err, "netfilter: set policy %s %s", policy.chain, policy.target)
		}
	}

	for _, lc := range append(append([]linkedChain{}, filterChains...), natChains...) {
		if err := linkChain(ctx, lc); err != nil {
			return err
		}
	}

	// Global rules, in order: loopback accept, martian reject, established.
	for _, args := range [][]string{
		{"-i", "lo", "-j", "ACCEPT"},
		{"-d", "127.0.0.0/8", "-j", "REJECT"},
		{"-m", "state", "--state", "ESTABLISHED,RELATED", "-j", "ACCEPT"},
	} {
		if err := appendRule(ctx, "filter", "vagabond-input", args); err != nil {
			return err
		}
	}

	for _, iface := range internalInterfaces(cfg) {
		if iface == "" {
			continue
		}
		if err := appendRule(ctx, "filter", "vagabond-input", []string{"-i", iface, "-j", "ACCEPT"}); err != nil {
			return err
		}
		if err := appendRule(ctx, "filter", "vagabond-forward", []string{"-i", iface, "-j", "ACCEPT"}); err != nil {
			return err
		}
		if err := appendRule(ctx, "filter", "vagabond-forward", []string{"-o", iface, "-j", "ACCEPT"}); err != nil {
			return err
		}
	}

	for _, iface := range masqueradeInterfaces(cfg) {
		if iface == "" {
			continue
		}
		if err := appendRule(ctx, "nat", "vagabond-postrouting", []string{"-o", iface, "-j", "MASQUERADE"}); err != nil {
			return err
		}
	}

	logger.Infow("netfilter rules applied",
		"internal_interfaces", internalInterfaces(cfg),
		"masquerade_interfaces", masqueradeInterfaces(cfg))
	return nil
}

// linkChain creates lc.vagabond if absent, flushes it, and ensures a jump
// from lc.sysChain into it exists.
func linkChain(ctx context.Context, lc linkedChain) error {
	if !execrun.Check(ctx, "iptables", "-t", lc.table, "-L", lc.vagabond, "-n") {
		if _, err := execrun.Run(ctx, "iptables", "-t", lc.table, "-N", lc.vagabond); err != nil {
			return errors.Wrapf(err, "netfilter: create chain %s/%s", lc.table, lc.vagabond)
		}
	}
	if _, err := execrun.Run(ctx, "iptables", "-t", lc.table, "-F", lc.vagabond); err != nil {
		return errors.Wrapf(err, "netfilter: flush chain %s/%s", lc.table, lc.vagabond)
	}
	if !execrun.Check(ctx, "iptables", "-t", lc.table, "-C", lc.sysChain, "-j", lc.vagabond) {
		if _, err := execrun.Run(ctx, "iptables", "-t", lc.table, "-A", lc.sysChain, "-j", lc.vagabond); err != nil {
			return errors.Wrapf(err, "netfilter: jump %s -> %s/%s", lc.sysChain, lc.table, lc.vagabond)
		}
	}
	return nil
}

func appendRule(ctx context.Context, table, chain string, args []string) error {
	full := append([]string{"-t", table, "-A", chain}, args...)
	if _, err := execrun.Run(ctx, "iptables", full...); err != nil {
		return errors.Wrapf(err, "netfilter: append %s/%s %v", table, chain, args)
	}
	return nil
}
