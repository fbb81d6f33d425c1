package domain

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemberSelector picks one element of a non-empty candidate set.
type MemberSelector interface {
	Pick(candidates []uuid.UUID) uuid.UUID
}

// RandomSelector picks uniformly at random.
type RandomSelector struct{}

func (RandomSelector) Pick(candidates []uuid.UUID) uuid.UUID {
	return lo.Sample(candidates)
}

// SelectorFunc adapts a function to MemberSelector.
type SelectorFunc func(candidates []uuid.UUID) uuid.UUID

func (f SelectorFunc) Pick(candidates []uuid.UUID) uuid.UUID {
	return f(candidates)
}
