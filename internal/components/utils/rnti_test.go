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
	"testing"

	"gitlab.eurecom.fr/open-exposure/coresim/mac-scheduler/internal/models"
)

func TestRntiAllocator(t *testing.T) {
	a, err := NewRntiAllocator(FirstCrnti, FirstCrnti+1)
	if err != nil {
		t.Fatalf("NewRntiAllocator() error = %v", err)
	}
	r1, _ := a.Allocate("001010000000001")
	r2, _ := a.Allocate("001010000000002")
	if r1 != FirstCrnti || r2 != FirstCrnti+1 {
		t.Fatalf("Allocate() = %d, %d, want %d, %d", r1, r2, FirstCrnti, FirstCrnti+1)
	}
	if again, _ := a.Allocate("001010000000001"); again != r1 {
		t.Fatalf("Allocate() for a known imsi = %d, want %d", again, r1)
	}
	if _, err := a.Allocate("001010000000003"); !errors.Is(err, ErrNoRnti) {
		t.Fatalf("Allocate() on empty pool error = %v, want ErrNoRnti", err)
	}
	if err := a.Release(r1); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := a.Release(r1); err == nil {
		t.Fatalf("second Release() error = nil")
	}
	if _, ok := a.Lookup("001010000000001"); ok {
		t.Fatalf("Lookup() found a released imsi")
	}
	r3, _ := a.Allocate("001010000000003")
	if owner, _ := a.Owner(r3); r3 != r1 || owner != "001010000000003" {
		t.Fatalf("Allocate() after release = %d owned by %s", r3, owner)
	}
	if a.InUse() != 2 {
		t.Fatalf("InUse() = %d, want 2", a.InUse())
	}
}

func TestRntiAllocatorRange(t *testing.T) {
	if _, err := NewRntiAllocator(0, 10); err == nil {
		t.Fatalf("NewRntiAllocator(0, 10) error = nil")
	}
	if _, err := NewRntiAllocator(models.Rnti(20), models.Rnti(10)); err == nil {
		t.Fatalf("NewRntiAllocator(20, 10) error = nil")
	}
}
