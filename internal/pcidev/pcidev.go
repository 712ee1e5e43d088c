// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package pcidev identifies the PCI device behind a network interface from
// its sysfs attributes and recognizes members of the Intel x520 family.
package pcidev

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/platinasystems/url"
)

// SysClassNet is where the kernel exposes per-interface device attributes.
// Tests point this at a scratch directory.
var SysClassNet = "/sys/class/net"

var (
	ErrRead    = errors.New("can't read interface data")
	ErrNotX520 = errors.New("not a recognized Intel x520 card")
)

// Identity is an interface's PCI vendor and device id pair as read from
// sysfs, e.g. {"0x8086", "0x10fb"}.
type Identity struct {
	Vendor string
	Device string
}

// The recognized vendor/device pairs of the x520 family. 0x10fb is the
// 82599ES dual SFP+ controller, 0x154d its X520-4 variant.
var x520 = map[Identity]struct{}{
	{"0x8086", "0x10fb"}: {},
	{"0x8086", "0x154d"}: {},
}

// New reads the vendor and device attributes of the named interface.
func New(ifname string) (Identity, error) {
	vendor, err := attr(ifname, "vendor")
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w: %v", ifname, ErrRead, err)
	}
	device, err := attr(ifname, "device")
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w: %v", ifname, ErrRead, err)
	}
	return Identity{Vendor: vendor, Device: device}, nil
}

func attr(ifname, name string) (string, error) {
	// /sys/class/net/DEV/device is a symlink to the PCI bus id
	r, err := url.Open(filepath.Join(SysClassNet, ifname, "device", name))
	if err != nil {
		return "", err
	}
	defer r.Close()
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(buf)), nil
}

// Recognize fails unless the identity is on the x520 allow-list. It guards
// the EEPROM write path against unrelated hardware.
func (id Identity) Recognize() error {
	if _, found := x520[id]; !found {
		return fmt.Errorf("%s %s: %w", id.Vendor, id.Device, ErrNotX520)
	}
	return nil
}

// Magic is the write-authorization token ethtool wants for this device,
// the device id concatenated with the vendor id, both without their 0x
// prefix, e.g. "10fb8086".
func (id Identity) Magic() string {
	return strings.TrimPrefix(id.Device, "0x") +
		strings.TrimPrefix(id.Vendor, "0x")
}
