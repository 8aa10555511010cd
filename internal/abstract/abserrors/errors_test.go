package abserrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
)

func TestIsMatchesConstructedKind(t *testing.T) {
	err := abserrors.Invariant("test.op", abserrors.ErrNoSuccessors)
	assert.True(t, abserrors.Is(err, abserrors.KindInvariantViolation))
	assert.False(t, abserrors.Is(err, abserrors.KindParse))
}

func TestUnwrapReachesUnderlyingSentinel(t *testing.T) {
	err := abserrors.Parse("test.op", abserrors.ErrInvalidCardSyntax)
	assert.True(t, errors.Is(err, abserrors.ErrInvalidCardSyntax))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, abserrors.Is(errors.New("plain"), abserrors.KindResource))
}

func TestErrorMessageIncludesOpAndKind(t *testing.T) {
	err := abserrors.TableMissing("strategy.Load", errors.New("boom"))
	assert.Contains(t, err.Error(), "strategy.Load")
	assert.Contains(t, err.Error(), "table_missing")
	assert.Contains(t, err.Error(), "boom")
}
