// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eeprom93

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Org is a set of supported array organizations.
type Org uint8

const (
	OrgX8 Org = 1 << iota
	OrgX16

	OrgBoth = OrgX8 | OrgX16
)

func (o Org) String() string {
	switch o {
	case OrgX8:
		return "x8"
	case OrgX16:
		return "x16"
	case OrgBoth:
		return "x8+x16"
	}
	return "none"
}

// Profile describes a part number. AddrBits is the number of command
// address bits in x8 organization.
type Profile struct {
	Name     string
	Size     int
	AddrBits int
	Org      Org
}

// Registry is a list of known parts.
type Registry []Profile

// Profiles lists the built-in parts.
var Profiles = Registry{
	{Name: "93c66", Size: 512, AddrBits: 9, Org: OrgBoth},
	{Name: "93c56", Size: 256, AddrBits: 8, Org: OrgBoth},
	{Name: "93c46", Size: 128, AddrBits: 7, Org: OrgBoth},
	{Name: "93c06", Size: 32, AddrBits: 6, Org: OrgX16},
}

// Find looks up a part by case-insensitive name.
func (r Registry) Find(name string) (Profile, bool) {
	for _, p := range r {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// Merge returns extra followed by the entries of r it does not shadow. An
// entry of extra shadows any entry of r with the same name.
func (r Registry) Merge(extra Registry) Registry {
	out := make(Registry, 0, len(r)+len(extra))
	out = append(out, extra...)
	for _, p := range r {
		if _, dup := extra.Find(p.Name); !dup {
			out = append(out, p)
		}
	}
	return out
}

type profileFile struct {
	Profiles []struct {
		Name     string   `yaml:"name"`
		Size     int      `yaml:"size"`
		AddrBits int      `yaml:"addr_bits"`
		Org      []string `yaml:"org"`
	} `yaml:"profiles"`
}

// LoadProfiles reads additional parts from a YAML document:
//
//	profiles:
//	  - name: 93lc66b
//	    size: 512
//	    addr_bits: 9
//	    org: [x16]
//
// An omitted org means both. Sizes and address bits are checked when the
// profile is resolved, not here.
func LoadProfiles(r io.Reader) (Registry, error) {
	var f profileFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &GeometryError{Kind: ErrBadProfile, Detail: err.Error()}
	}
	reg := make(Registry, 0, len(f.Profiles))
	for i, p := range f.Profiles {
		if p.Name == "" {
			return nil, geometryErr(ErrBadProfile, "entry %d has no name", i)
		}
		org := OrgBoth
		if len(p.Org) != 0 {
			org = 0
			for _, s := range p.Org {
				switch strings.ToLower(s) {
				case "x8":
					org |= OrgX8
				case "x16":
					org |= OrgX16
				default:
					return nil, geometryErr(ErrBadProfile, "%s: unknown organization %q", p.Name, s)
				}
			}
		}
		reg = append(reg, Profile{Name: p.Name, Size: p.Size, AddrBits: p.AddrBits, Org: org})
	}
	return reg, nil
}

func (p Profile) String() string {
	return fmt.Sprintf("%s (%d bytes, %d address bits, %v)", p.Name, p.Size, p.AddrBits, p.Org)
}
