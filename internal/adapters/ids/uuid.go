package ids

import (
	"github.com/google/uuid"

	"github.com/ldeneuve/felicare/internal/ports"
)

type UUIDGenerator struct{}

var _ ports.IDGenerator = UUIDGenerator{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
