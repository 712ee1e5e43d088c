// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is the x520sfp program, an EEPROM patcher that unlocks Intel x520
// NICs for non Intel SFP modules.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/platinasystems/flags"

	"github.com/platinasystems/x520sfp/cmd/x520sfp"
	"github.com/platinasystems/x520sfp/internal/pcidev"
)

func main() {
	os.Exit(Main(os.Args[1:]...))
}

func Main(args ...string) int {
	command := x520sfp.Command{}
	flag, args := flags.New(args, "-h", "-usage", "-apropos", "-man")
	switch {
	case flag.ByName["-h"], flag.ByName["-usage"]:
		fmt.Println("usage:\t" + command.Usage())
		return 0
	case flag.ByName["-apropos"]:
		fmt.Println(command.String(), "-", command.Apropos())
		return 0
	case flag.ByName["-man"]:
		fmt.Println(strings.TrimSpace(command.Man().String()))
		return 0
	}
	return exitStatus(command, command.Main(args...))
}

// One status per failure class so scripted callers can tell "already
// done" (1) from "not applicable" (2, 3) from "failed" (the accessor's
// own status, or 1).
func exitStatus(command x520sfp.Command, err error) int {
	var xerr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, x520sfp.ErrNoIfname):
		fmt.Println("usage:\t" + command.Usage())
		return 255
	case errors.Is(err, x520sfp.ErrAlreadyUnlocked):
		return 1
	case errors.Is(err, pcidev.ErrRead):
		diag(err)
		return 2
	case errors.Is(err, pcidev.ErrNotX520):
		diag(err)
		return 3
	case errors.As(err, &xerr) && xerr.ExitCode() > 0:
		diag(err)
		return xerr.ExitCode()
	default:
		diag(err)
		return 1
	}
}

func diag(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(os.Args[0]), err)
}
