// Package ids names blocks by type and position ("HOPPER@3,64,-2"). The same
// form is used for containers, stations and log rows.
package ids

import (
	"fmt"
	"strconv"
	"strings"
)

const stationType = "CRAFTING_TABLE"

func BlockID(typ string, x, y, z int) string {
	return fmt.Sprintf("%s@%d,%d,%d", typ, x, y, z)
}

func ParseBlockID(id string) (typ string, x, y, z int, ok bool) {
	typ, rest, found := strings.Cut(id, "@")
	if !found || typ == "" {
		return "", 0, 0, 0, false
	}
	coord := strings.Split(rest, ",")
	if len(coord) != 3 {
		return "", 0, 0, 0, false
	}
	var v [3]int
	for i, c := range coord {
		n, err := strconv.Atoi(c)
		if err != nil {
			return "", 0, 0, 0, false
		}
		v[i] = n
	}
	return typ, v[0], v[1], v[2], true
}

// StationIDAt names the crafting station anchored at the table at x,y,z.
func StationIDAt(x, y, z int) string {
	return BlockID(stationType, x, y, z)
}

// ParseStationID accepts only ids produced by StationIDAt.
func ParseStationID(id string) (x, y, z int, ok bool) {
	typ, x, y, z, ok := ParseBlockID(id)
	if !ok || typ != stationType {
		return 0, 0, 0, false
	}
	return x, y, z, true
}
