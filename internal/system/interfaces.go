package system

import (
	"net"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// ErrNoDevice indicates the requested network device wasn't found.
var ErrNoDevice = errors.New("no such device")

func linkByName(name string) (netlink.Link, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if _, ok := err.(netlink.LinkNotFoundError); ok {
			return nil, ErrNoDevice
		}
		return nil, errors.Wrapf(err, "LinkByName(%s)", name)
	}
	return link, nil
}

// LinkUp brings iface up, equivalent to `ip link set up <iface>`.
func LinkUp(name string) error {
	link, err := linkByName(name)
	if err != nil {
		return err
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return errors.Wrapf(err, "LinkSetUp(%s)", name)
	}
	return nil
}

// AddrFlush removes every address currently on iface, equivalent to
// `ip addr flush dev <iface>`.
func AddrFlush(name string) error {
	link, err := linkByName(name)
	if err != nil {
		return err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return errors.Wrapf(err, "AddrList(%s)", name)
	}
	for _, a := range addrs {
		if err := netlink.AddrDel(link, &a); err != nil {
			return errors.Wrapf(err, "AddrDel(%s, %s)", name, a.IPNet)
		}
	}
	return nil
}

// AddrChange sets iface's single address to cidr (e.g. "192.168.1.1/24"),
// flushing whatever was there before, equivalent to §4.4(c)'s
// `ip addr change ADDR/PREFIX dev IFACE`.
func AddrChange(name, cidr string) error {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return errors.Wrapf(err, "invalid address %s", cidr)
	}

	link, err := linkByName(name)
	if err != nil {
		return err
	}
	if err := AddrFlush(name); err != nil {
		return err
	}

	// netlink wants the host address paired with the network mask, not the
	// network address ParseCIDR returns.
	addr := &netlink.Addr{IPNet: &net.IPNet{IP: ip, Mask: ipnet.Mask}}
	if err := netlink.AddrAdd(link, addr); err != nil {
		return errors.Wrapf(err, "AddrAdd(%s, %s)", name, cidr)
	}
	return nil
}

// wireguardLink satisfies netlink.Link for a link of kind "wireguard", the
// same minimal shape netctl.go uses to back LinkAddWireguard.
type wireguardLink struct {
	netlink.LinkAttrs
}

func (w *wireguardLink) Attrs() *netlink.LinkAttrs { return &w.LinkAttrs }
func (w *wireguardLink) Type() string              { return "wireguard" }

// EnsureWireguardLink creates a wireguard-type link named name if it does
// not already exist, equivalent to `ip link add dev <name> type wireguard`.
func EnsureWireguardLink(name string) error {
	if _, err := linkByName(name); err == nil {
		return nil
	} else if err != ErrNoDevice {
		return err
	}

	link := &wireguardLink{netlink.LinkAttrs{Name: name, TxQLen: 1000}}
	if err := netlink.LinkAdd(link); err != nil {
		return errors.Wrapf(err, "LinkAdd(%s, wireguard)", name)
	}
	return nil
}
