// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package governance

import (
	"errors"
	"fmt"
)

// Error kinds. Validation failures returned by the Governor wrap one of these,
// so callers can branch with errors.Is regardless of the detailed cause.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInsufficientWeight = errors.New("insufficient voting weight")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrProposalNotActive  = errors.New("proposal is not currently active")
	ErrInvalidState       = errors.New("proposal is in the wrong state")
	ErrNotFound           = errors.New("not found")
)

// Access errors
var (
	ErrNotAdministrator = fmt.Errorf("%w: caller is not the administrator", ErrUnauthorized)
	ErrAddressBlocked   = fmt.Errorf("%w: address is blocked", ErrUnauthorized)
	ErrNotDisburser     = fmt.Errorf("%w: caller may not mark proposals executed", ErrUnauthorized)
)

// Configuration errors
var (
	ErrVotingPeriodTooShort = fmt.Errorf("%w: voting period below minimum", ErrInvalidParameter)
	ErrRewardOutOfRange     = fmt.Errorf("%w: proposal reward above 10000 basis points", ErrInvalidParameter)
	ErrNilAmount            = fmt.Errorf("%w: amount must be set", ErrInvalidParameter)
)

// Voting errors
var (
	ErrProposalNotFound     = fmt.Errorf("%w: proposal", ErrNotFound)
	ErrNoVoteRecorded       = fmt.Errorf("%w: no vote recorded", ErrNotFound)
	ErrAlreadyVoted         = errors.New("voter has already voted on this proposal")
	ErrProposalNotSucceeded = fmt.Errorf("%w: proposal has not succeeded", ErrInvalidState)
	ErrTallyOverflow        = errors.New("vote tally overflow")
)
