package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Skip: 0, Limit: DefaultPageSize}, Page{Skip: -4}.Normalize())
	assert.Equal(t, Page{Skip: 10, Limit: MaxPageSize}, Page{Skip: 10, Limit: 1000}.Normalize())
	assert.Equal(t, Page{Skip: 3, Limit: 7}, Page{Skip: 3, Limit: 7}.Normalize())
}
