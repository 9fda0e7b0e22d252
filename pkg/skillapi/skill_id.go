package skillapi

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SkillID is the opaque token naming a skill on the box. It is carried
// verbatim from the command line to the remote call.
type SkillID string

// ParseSkillID validates a skill identifier taken from user input.
func ParseSkillID(s string) (SkillID, error) {
	if strings.TrimSpace(s) == "" {
		return "", errors.New("skill id must not be empty")
	}
	return SkillID(s), nil
}

// WireValue is the argument sent to the service. Canonical decimal integers
// that fit an XML-RPC <int> go out as integers, everything else as strings.
func (id SkillID) WireValue() any {
	n, err := strconv.ParseInt(string(id), 10, 32)
	if err != nil {
		return string(id)
	}
	// "007" or "+7" would not survive the round trip
	if strconv.FormatInt(n, 10) != string(id) {
		return string(id)
	}
	return int(n)
}

func (id SkillID) String() string { return string(id) }
