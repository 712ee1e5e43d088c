// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package sfpbit interprets the SFP policy bit of the x520 EEPROM
// configuration byte at offset 0x58,
//
//	0x58 xxxxxxx0	Intel branded SFP modules only
//	0x58 xxxxxxx1	any SFP module
package sfpbit

import "fmt"

// Offset of the configuration byte within the EEPROM.
const Offset = 0x58

// AnySfp is the policy bit; the other seven bits of the byte are not ours
// to touch.
const AnySfp byte = 1 << 0

// Unlocked reports whether the byte already allows any SFP module.
func Unlocked(b byte) bool { return b&AnySfp == AnySfp }

// Patch returns b with the any-SFP bit set. Bits 1-7 pass through.
func Patch(b byte) byte { return b | AnySfp }

// Format renders the byte for the operator in hex and binary,
// e.g. "0x07 (0b00000111)".
func Format(b byte) string { return fmt.Sprintf("0x%02x (0b%08b)", b, b) }
