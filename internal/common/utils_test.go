package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipeByteArray(t *testing.T) {
	b := []byte("s3cr3t")
	WipeByteArray(b)
	assert.Equal(t, make([]byte, 6), b)
}

func TestWipeByteArray_Nil(t *testing.T) {
	assert.NotPanics(t, func() { WipeByteArray(nil) })
}
