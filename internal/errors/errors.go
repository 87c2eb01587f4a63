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
)

// Sentinel errors for comparison with errors.Is
var (
	ErrInvalidAddress = errors.New("invalid contract address")
	ErrNoBytecode     = errors.New("no bytecode")
	ErrFetchFailed    = errors.New("bytecode fetch failed")
	ErrCollaborator   = errors.New("collaborator failure")
	ErrNotifyFailed   = errors.New("notification failed")
	ErrLogWriteFailed = errors.New("escalation log write failed")
	ErrConfig         = errors.New("configuration error")
	ErrValidation     = errors.New("validation error")
)

// Wrap functions for consistent error wrapping
func WrapInvalidAddress(address string) error {
	return fmt.Errorf("%w: %q (expected 0x followed by 40 hex characters)", ErrInvalidAddress, address)
}

func WrapNoBytecode(address string, err error) error {
	if err == nil {
		return fmt.Errorf("%w at %s", ErrNoBytecode, address)
	}
	return fmt.Errorf("%w at %s: %w", ErrNoBytecode, address, err)
}

// WrapFetchFailed marks a fetch that never produced bytecode. It is still a
// skip, but unlike confirmed empty code it is worth retrying.
func WrapFetchFailed(address string, err error) error {
	return fmt.Errorf("%w at %s: %w: %w", ErrNoBytecode, address, ErrFetchFailed, err)
}

func WrapCollaborator(phase string, err error) error {
	return fmt.Errorf("%w (%s): %w", ErrCollaborator, phase, err)
}

func WrapNotifyFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrNotifyFailed, err)
}

func WrapLogWriteFailed(tier string, err error) error {
	return fmt.Errorf("%w (%s): %w", ErrLogWriteFailed, tier, err)
}

func WrapConfigError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfig, msg, err)
}

func WrapValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// IsSkip reports whether err marks a contract that was skipped rather than failed.
func IsSkip(err error) bool {
	return errors.Is(err, ErrNoBytecode)
}

// IsFetchFailure reports whether err is a skip caused by a failed fetch
// rather than by confirmed empty code.
func IsFetchFailure(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// Is and As mirror the standard library so callers need only this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
