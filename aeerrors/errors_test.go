package aeerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExitNow(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsExitNow(ErrExitNow))
	assert.True(IsExitNow(fmt.Errorf("handler: %w", ErrExitNow)))
	assert.False(IsExitNow(ErrTimeout))
	assert.False(IsExitNow(errors.New("exit now")))
	assert.False(IsExitNow(nil))
}
