package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitOwners(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitOwners(" a, ,b,"))
	assert.Empty(t, splitOwners(""))
}
