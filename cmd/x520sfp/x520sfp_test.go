// Copyright © 2022 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package x520sfp

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/platinasystems/x520sfp/internal/pcidev"
	"github.com/platinasystems/x520sfp/internal/sfpbit"
)

type write struct {
	offset int
	value  byte
	length int
	magic  string
}

// fakeIO stands in for the ethtool collaborator.
type fakeIO struct {
	value    byte
	readErr  error
	writeErr error
	reads    int
	writes   []write
}

func (f *fakeIO) ReadByte(offset, length int) (byte, error) {
	f.reads++
	if f.readErr != nil {
		return 0, f.readErr
	}
	if offset != sfpbit.Offset || length != 1 {
		return 0, errors.New("unexpected read")
	}
	return f.value, nil
}

func (f *fakeIO) WriteByte(offset int, value byte, length int, magic string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, write{offset, value, length, magic})
	return nil
}

func sysfs(t *testing.T, ifname, vendor, device string) {
	t.Helper()
	old := pcidev.SysClassNet
	t.Cleanup(func() { pcidev.SysClassNet = old })
	pcidev.SysClassNet = t.TempDir()
	dir := filepath.Join(pcidev.SysClassNet, ifname, "device")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, s := range map[string]string{
		"vendor": vendor,
		"device": device,
	} {
		err := ioutil.WriteFile(filepath.Join(dir, name),
			[]byte(s+"\n"), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestPatchLockedCard(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x10fb")
	fake := &fakeIO{value: 0x00}
	if err := (Command{IO: fake}).Main("eth4"); err != nil {
		t.Fatal(err)
	}
	expect := []write{{0x58, 0x01, 1, "10fb8086"}}
	if !reflect.DeepEqual(fake.writes, expect) {
		t.Error("wrong:", fake.writes)
	}
}

func TestPatchPreservesOtherBits(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x154d")
	fake := &fakeIO{value: 0x54}
	if err := (Command{IO: fake}).Main("eth4"); err != nil {
		t.Fatal(err)
	}
	expect := []write{{0x58, 0x55, 1, "154d8086"}}
	if !reflect.DeepEqual(fake.writes, expect) {
		t.Error("wrong:", fake.writes)
	}
}

func TestAlreadyUnlocked(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x154d")
	fake := &fakeIO{value: 0x07}
	err := Command{IO: fake}.Main("eth4")
	if !errors.Is(err, ErrAlreadyUnlocked) {
		t.Fatal("wrong:", err)
	}
	if len(fake.writes) != 0 {
		t.Error("wrote:", fake.writes)
	}
}

func TestUnrecognizedCard(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x10c6")
	fake := new(fakeIO)
	err := Command{IO: fake}.Main("eth4")
	if !errors.Is(err, pcidev.ErrNotX520) {
		t.Fatal("wrong:", err)
	}
	if fake.reads != 0 || len(fake.writes) != 0 {
		t.Error("touched eeprom of unrecognized card")
	}
}

func TestUnreadableIdentity(t *testing.T) {
	defer func(s string) { pcidev.SysClassNet = s }(pcidev.SysClassNet)
	pcidev.SysClassNet = t.TempDir()
	fake := new(fakeIO)
	err := Command{IO: fake}.Main("eth4")
	if !errors.Is(err, pcidev.ErrRead) {
		t.Fatal("wrong:", err)
	}
	if fake.reads != 0 || len(fake.writes) != 0 {
		t.Error("touched eeprom without an identity")
	}
}

func TestMissingIfname(t *testing.T) {
	if err := (Command{IO: new(fakeIO)}).Main(); err != ErrNoIfname {
		t.Error("wrong:", err)
	}
}

func TestExtraArgs(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x10fb")
	err := Command{IO: new(fakeIO)}.Main("eth4", "eth5")
	if err == nil {
		t.Error("accepted two interfaces")
	}
}

func TestDryRun(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x10fb")
	fake := &fakeIO{value: 0x00}
	if err := (Command{IO: fake}).Main("-n", "eth4"); err != nil {
		t.Fatal(err)
	}
	if len(fake.writes) != 0 {
		t.Error("dry run wrote:", fake.writes)
	}
}

func TestReadFailure(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x10fb")
	readErr := errors.New("ethtool: not found")
	err := Command{IO: &fakeIO{readErr: readErr}}.Main("eth4")
	if !errors.Is(err, readErr) {
		t.Error("wrong:", err)
	}
}

func TestWriteFailure(t *testing.T) {
	sysfs(t, "eth4", "0x8086", "0x10fb")
	writeErr := errors.New("Cannot set EEPROM data")
	err := Command{IO: &fakeIO{writeErr: writeErr}}.Main("eth4")
	if !errors.Is(err, writeErr) {
		t.Error("wrong:", err)
	}
}
