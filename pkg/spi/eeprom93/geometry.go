// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eeprom93

import "fmt"

// Address bit limits of the command header.
const (
	MinAddrBits = 5
	MaxAddrBits = 9
)

// Params is a geometry given by hand instead of by part number. AddrBits is
// used as is, whatever the organization.
type Params struct {
	Size     int
	AddrBits int
}

// Selection is what the user asked for: either a part number or explicit
// parameters, plus the organization.
type Selection struct {
	Type     string
	Explicit *Params
	X16      bool
}

// Geometry is a validated device geometry. AddrBits is the effective number
// of command address bits for the selected organization.
type Geometry struct {
	Name     string
	Size     int
	AddrBits int
	X16      bool
}

// WordSize returns the size of one addressable word in bytes.
func (g Geometry) WordSize() int {
	if g.X16 {
		return 2
	}
	return 1
}

// Words returns the number of addressable words.
func (g Geometry) Words() int {
	return g.Size / g.WordSize()
}

func (g Geometry) String() string {
	org := "x8"
	if g.X16 {
		org = "x16"
	}
	return fmt.Sprintf("%s, %d%s, %d command address bits", g.Name, g.Words(), org, g.AddrBits)
}

// Resolve turns a selection into a geometry, looking part numbers up in reg.
// Checks run in a fixed order and the first failure is returned.
func Resolve(reg Registry, sel Selection) (Geometry, error) {
	var (
		g   Geometry
		org Org
	)
	switch {
	case sel.Type != "" && sel.Explicit != nil:
		return Geometry{}, geometryErr(ErrConflictingSelection, "type %q", sel.Type)
	case sel.Type != "":
		p, ok := reg.Find(sel.Type)
		if !ok {
			return Geometry{}, &GeometryError{Kind: ErrUnknownType, Detail: sel.Type}
		}
		g = Geometry{Name: p.Name, Size: p.Size, AddrBits: p.AddrBits, X16: sel.X16}
		// x16 mode uses one less address bit than x8.
		if sel.X16 {
			g.AddrBits--
		}
		org = p.Org
	case sel.Explicit != nil:
		g = Geometry{Name: "custom", Size: sel.Explicit.Size, AddrBits: sel.Explicit.AddrBits, X16: sel.X16}
		org = OrgBoth
	default:
		return Geometry{}, &GeometryError{Kind: ErrNoSelection}
	}
	if err := validate(g, org); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

func validate(g Geometry, org Org) error {
	if g.Size <= 0 {
		return geometryErr(ErrZeroSize, "size %d", g.Size)
	}
	if g.Size&(g.Size-1) != 0 {
		return geometryErr(ErrSizeNotPowerOfTwo, "size %d", g.Size)
	}
	if g.AddrBits < MinAddrBits || g.AddrBits > MaxAddrBits {
		return geometryErr(ErrAddrBitsRange, "got %d", g.AddrBits)
	}
	if g.X16 && org&OrgX16 == 0 {
		return geometryErr(ErrX16Unsupported, "%s", g.Name)
	}
	if !g.X16 && org&OrgX8 == 0 {
		return geometryErr(ErrX8Unsupported, "%s", g.Name)
	}
	if g.X16 && g.Size < 2 {
		return geometryErr(ErrX16Unsupported, "size %d holds no x16 word", g.Size)
	}
	return nil
}
