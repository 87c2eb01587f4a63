// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	assert.NotNil(t, ErrInvalidAddress)
	assert.NotNil(t, ErrNoBytecode)
	assert.NotNil(t, ErrCollaborator)
	assert.NotNil(t, ErrNotifyFailed)
	assert.NotNil(t, ErrLogWriteFailed)
	assert.NotNil(t, ErrConfig)
	assert.NotNil(t, ErrValidation)
}

func TestErrorWrapping(t *testing.T) {
	baseErr := fmt.Errorf("base error")

	wrappedErr := WrapInvalidAddress("0x123")
	assert.True(t, errors.Is(wrappedErr, ErrInvalidAddress))
	assert.Contains(t, wrappedErr.Error(), "0x123")

	wrappedErr = WrapNoBytecode("0xabc", baseErr)
	assert.True(t, errors.Is(wrappedErr, ErrNoBytecode))
	assert.True(t, errors.Is(wrappedErr, baseErr))

	wrappedErr = WrapNoBytecode("0xabc", nil)
	assert.True(t, errors.Is(wrappedErr, ErrNoBytecode))
	assert.Contains(t, wrappedErr.Error(), "0xabc")

	wrappedErr = WrapCollaborator("disassemble", baseErr)
	assert.True(t, errors.Is(wrappedErr, ErrCollaborator))
	assert.True(t, errors.Is(wrappedErr, baseErr))
	assert.Contains(t, wrappedErr.Error(), "disassemble")

	wrappedErr = WrapNotifyFailed(baseErr)
	assert.True(t, errors.Is(wrappedErr, ErrNotifyFailed))
	assert.True(t, errors.Is(wrappedErr, baseErr))

	wrappedErr = WrapLogWriteFailed("critical", baseErr)
	assert.True(t, errors.Is(wrappedErr, ErrLogWriteFailed))
	assert.Contains(t, wrappedErr.Error(), "critical")

	wrappedErr = WrapConfigError("failed to read", baseErr)
	assert.True(t, errors.Is(wrappedErr, ErrConfig))
	assert.True(t, errors.Is(wrappedErr, baseErr))

	wrappedErr = WrapValidationError("interval must be positive")
	assert.True(t, errors.Is(wrappedErr, ErrValidation))
}

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip(WrapNoBytecode("0xabc", nil)))
	assert.False(t, IsSkip(WrapCollaborator("fetch", fmt.Errorf("boom"))))
	assert.False(t, IsSkip(nil))
}

func TestIsFetchFailure(t *testing.T) {
	cause := fmt.Errorf("429 too many requests")
	err := WrapFetchFailed("0xabc", cause)

	assert.True(t, IsSkip(err))
	assert.True(t, IsFetchFailure(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "0xabc")

	assert.False(t, IsFetchFailure(WrapNoBytecode("0xabc", nil)))
	assert.False(t, IsFetchFailure(nil))
}
