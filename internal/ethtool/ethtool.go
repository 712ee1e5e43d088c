// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package ethtool drives the host ethtool utility to read and write raw
// NIC EEPROM bytes.
package ethtool

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// EepromIO is the narrow view of the ethtool EEPROM commands that the
// patch flow needs, so it can run against a fake instead of hardware.
type EepromIO interface {
	ReadByte(offset, length int) (byte, error)
	WriteByte(offset int, value byte, length int, magic string) error
}

// Tool runs the ethtool program against one interface.
type Tool struct {
	Prog   string
	Ifname string
}

func New(ifname string) *Tool {
	return &Tool{Prog: "ethtool", Ifname: ifname}
}

// ReadByte runs `ethtool -e IFNAME offset OFFSET length LENGTH` and
// parses the byte value from its output.
func (t *Tool) ReadByte(offset, length int) (byte, error) {
	out, err := exec.Command(t.Prog, "-e", t.Ifname,
		"offset", fmt.Sprintf("%#x", offset),
		"length", strconv.Itoa(length)).Output()
	if err != nil {
		return 0, fmt.Errorf("%s -e %s: %w", t.Prog, t.Ifname, err)
	}
	return ParseByte(string(out))
}

// WriteByte runs `ethtool -E IFNAME magic MAGIC offset OFFSET value VALUE
// length LENGTH`. The magic token authorizes the write; without a correct
// one ethtool refuses to touch the EEPROM.
func (t *Tool) WriteByte(offset int, value byte, length int, magic string) error {
	cmd := exec.Command(t.Prog, "-E", t.Ifname,
		"magic", magic,
		"offset", fmt.Sprintf("%#x", offset),
		"value", fmt.Sprintf("0x%02x", value),
		"length", strconv.Itoa(length))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	fmt.Println("Running", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s -E %s: %w", t.Prog, t.Ifname, err)
	}
	return nil
}

// ParseByte extracts the byte value from ethtool -e output. The value is
// the last whitespace delimited token of the last non-empty line,
//
//	Offset          Values
//	------          ------
//	0x0058:         00
//
// Anything else is a transport error; no best effort parse.
func ParseByte(out string) (byte, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) == 0 {
		return 0, fmt.Errorf("%q: empty eeprom read output", out)
	}
	tok := fields[len(fields)-1]
	v, err := strconv.ParseUint(strings.TrimPrefix(tok, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%q: not a byte value", tok)
	}
	return byte(v), nil
}
