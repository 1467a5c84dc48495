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

package utils

import (
	"errors"
	"fmt"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

// C-RNTI range of TS 36.321 table 7.1-1.
const (
	FirstCrnti models.Rnti = 0x003D
	LastCrnti  models.Rnti = 0xFFF3
)

var ErrNoRnti = errors.New("no available rnti")

// RntiAllocator hands out C-RNTIs to UEs identified by IMSI. Released values
// go to the back of the pool so they are not reused right away.
type RntiAllocator struct {
	available []models.Rnti
	allocated map[string]models.Rnti // imsi -> rnti
	owners    map[models.Rnti]string // rnti -> imsi
}

func NewRntiAllocator(first, last models.Rnti) (*RntiAllocator, error) {
	if first == 0 || last < first {
		return nil, fmt.Errorf("invalid rnti range %d..%d", first, last)
	}
	pool := make([]models.Rnti, 0, int(last-first)+1)
	for r := int(first); r <= int(last); r++ {
		pool = append(pool, models.Rnti(r))
	}
	return &RntiAllocator{
		available: pool,
		allocated: make(map[string]models.Rnti),
		owners:    make(map[models.Rnti]string),
	}, nil
}

func (a *RntiAllocator) Allocate(imsi string) (models.Rnti, error) {
	if rnti, ok := a.allocated[imsi]; ok {
		return rnti, nil
	}
	if len(a.available) == 0 {
		return 0, ErrNoRnti
	}
	rnti := a.available[0]
	a.available = a.available[1:]
	a.allocated[imsi] = rnti
	a.owners[rnti] = imsi
	return rnti, nil
}

func (a *RntiAllocator) Release(rnti models.Rnti) error {
	imsi, ok := a.owners[rnti]
	if !ok {
		return fmt.Errorf("rnti %d is not allocated", rnti)
	}
	delete(a.owners, rnti)
	delete(a.allocated, imsi)
	a.available = append(a.available, rnti)
	return nil
}

func (a *RntiAllocator) Lookup(imsi string) (models.Rnti, bool) {
	rnti, ok := a.allocated[imsi]
	return rnti, ok
}

func (a *RntiAllocator) Owner(rnti models.Rnti) (string, bool) {
	imsi, ok := a.owners[rnti]
	return imsi, ok
}

func (a *RntiAllocator) InUse() int {
	return len(a.owners)
}
