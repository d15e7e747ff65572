package dispatch

import (
	"strings"

	"github.com/wippyai/crypto-bridge/errors"
)

// Convention selects how outputs travel back from the module
type Convention uint8

const (
	OutPointers Convention = iota
	ReturnPointer
)

var conventionNames = [...]string{
	OutPointers:   "out-pointers",
	ReturnPointer: "return-pointer",
}

func (c Convention) String() string {
	if int(c) < len(conventionNames) {
		return conventionNames[c]
	}
	return "unknown"
}

// ParseConvention accepts the names printed by String
func ParseConvention(s string) (Convention, error) {
	for i, name := range conventionNames {
		if strings.EqualFold(s, name) {
			return Convention(i), nil
		}
	}
	return 0, errors.InvalidInput(errors.PhaseParse, "unknown return convention "+s)
}
