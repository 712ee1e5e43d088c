// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package x520sfp patches the EEPROM of an Intel x520 NIC so that it
// accepts any SFP module instead of Intel branded ones only. The change
// is permanent; the allow_unsupported_sfp module parameter is no longer
// needed after a reboot.
package x520sfp

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"

	"github.com/platinasystems/x520sfp/internal/ethtool"
	"github.com/platinasystems/x520sfp/internal/pcidev"
	"github.com/platinasystems/x520sfp/internal/sfpbit"
	"github.com/platinasystems/x520sfp/lang"
)

var (
	ErrNoIfname = errors.New("IFNAME: missing")

	// ErrAlreadyUnlocked isn't a fault, just a distinct no-op outcome
	// so scripted callers can tell "already done" from "done".
	ErrAlreadyUnlocked = errors.New("already unlocked")
)

type Command struct {
	// IO overrides the ethtool collaborator, for tests.
	IO ethtool.EepromIO
}

func (Command) String() string { return "x520sfp" }

func (Command) Usage() string { return "x520sfp [-n] [-ethtool PROG] IFNAME" }

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "unlock an Intel x520 for non Intel SFP modules",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Patch bit 0 of the EEPROM byte at offset 0x58 of an Intel x520
	(82599ES 0x10fb, X520-4 0x154d) so the ixgbe driver accepts any
	SFP module. The patch survives reboots; in fact it needs one to
	take effect.

	-n	dry-run, report what would be written

	-ethtool PROG
		EEPROM accessor program, default "ethtool"

EXIT STATUS
	0	EEPROM patched
	1	already unlocked, nothing written
	2	can't read the interface's PCI identity
	3	not a recognized x520
	255	usage error

	Anything else is the accessor's own exit status.`,
	}
}

func (c Command) Main(args ...string) error {
	flag, args := flags.New(args, "-n")
	parm, args := parms.New(args, "-ethtool")
	if len(args) == 0 {
		return ErrNoIfname
	}
	if len(args) > 1 {
		return fmt.Errorf("%v: unexpected", args[1:])
	}
	ifname := args[0]

	id, err := pcidev.New(ifname)
	if err != nil {
		return err
	}
	if err = id.Recognize(); err != nil {
		return err
	}

	eio := c.IO
	if eio == nil {
		tool := ethtool.New(ifname)
		if prog := parm.ByName["-ethtool"]; len(prog) > 0 {
			tool.Prog = prog
		}
		eio = tool
	}

	v, err := eio.ReadByte(sfpbit.Offset, 1)
	if err != nil {
		return err
	}
	fmt.Println("EEPROM Value at 0x58 is", sfpbit.Format(v))
	if sfpbit.Unlocked(v) {
		fmt.Println("Card is already unlocked for all SFP modules.",
			"Nothing to do.")
		return fmt.Errorf("%s: %w", ifname, ErrAlreadyUnlocked)
	}
	fmt.Println("Card is locked to Intel only SFP modules.",
		"Patching EEPROM...")
	nv := sfpbit.Patch(v)
	fmt.Println("New EEPROM Value at 0x58 will be", sfpbit.Format(nv))
	if flag.ByName["-n"] {
		return nil
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Print("Write in  ")
		for i := 5; i > 0; i-- {
			fmt.Print("\b", i)
			time.Sleep(time.Second)
		}
		fmt.Print("\r          \r")
	}
	// an interrupted EEPROM write is worse than an unwanted one
	signal.Ignore(os.Interrupt)
	defer signal.Reset(os.Interrupt)
	if err = eio.WriteByte(sfpbit.Offset, nv, 1, id.Magic()); err != nil {
		return err
	}
	log.Printf("note", "%s: %s %s eeprom[%#x] %s -> %s", ifname,
		id.Vendor, id.Device, sfpbit.Offset,
		sfpbit.Format(v), sfpbit.Format(nv))
	fmt.Println("Reboot the machine for changes to take effect...")
	return nil
}
