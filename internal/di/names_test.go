package di_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omarluq/storefront/internal/di"
)

type box[T any] struct{ v T }

func TestTypeName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "github.com/omarluq/storefront/internal/di_test.Counter", di.TypeName[Counter]())
	assert.Equal(t, "*github.com/omarluq/storefront/internal/di_test.Counter", di.TypeName[*Counter]())
	assert.Equal(t, "**github.com/omarluq/storefront/internal/di_test.Counter", di.TypeName[**Counter]())
	assert.Equal(t, "string", di.TypeName[string]())
	assert.Equal(t, "[]int", di.TypeName[[]int]())
	assert.Contains(t, di.TypeName[box[Counter]](), "di_test.box[")
}
