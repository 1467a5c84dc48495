// Copyright 2025 EURECOM
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package mac

import (
	"errors"
	"fmt"
)

var (
	ErrCellNotConfigured     = errors.New("cell not configured")
	ErrCellReconfigured      = errors.New("cell configuration is immutable")
	ErrUnknownUe             = errors.New("unknown ue")
	ErrUnknownLogicalChannel = errors.New("unknown logical channel")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrInvariant             = errors.New("scheduler invariant violated")
)

func errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...)
}
