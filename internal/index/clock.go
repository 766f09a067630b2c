package index

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator mints record and vault identifiers. Generated IDs must sort in
// creation order, since listings paginate on ascending ID.
type IDGenerator interface {
	New() string
}

// XIDGenerator produces xids: 12 bytes (timestamp, machine, pid, counter)
// rendered as 20 sortable base32hex characters.
type XIDGenerator struct{}

func (XIDGenerator) New() string { return xid.New().String() }

// ParseID normalizes a user-supplied identifier. Both the 20-character xid
// form and the 24-character hex form of the raw bytes are accepted.
func ParseID(s string) (string, error) {
	if len(s) == 24 {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return "", fmt.Errorf("invalid hex id %q: %w", s, err)
		}
		id, err := xid.FromBytes(raw)
		if err != nil {
			return "", fmt.Errorf("invalid id bytes %q: %w", s, err)
		}
		return id.String(), nil
	}

	id, err := xid.FromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id.String(), nil
}
