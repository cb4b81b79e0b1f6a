package model

import "testing"

func TestInventoryValidate(t *testing.T) {
	cases := []struct {
		name    string
		inv     Inventory
		wantErr bool
	}{
		{"balanced", Inventory{SKUID: "sku-1", Total: 10, Available: 7, Reserved: 2, Sold: 1}, false},
		{"unbalanced", Inventory{SKUID: "sku-1", Total: 10, Available: 7, Reserved: 2, Sold: 2}, true},
		{"negative available", Inventory{SKUID: "sku-1", Total: 10, Available: -1, Reserved: 9, Sold: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.inv.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestInventoryAllocateReleaseSettle(t *testing.T) {
	inv := Inventory{SKUID: "sku-1", Total: 5, Available: 5}

	if err := inv.Allocate(1); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if inv.Available != 4 || inv.Reserved != 1 {
		t.Fatalf("after allocate: available=%d reserved=%d", inv.Available, inv.Reserved)
	}

	if err := inv.Settle(1); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if inv.Reserved != 0 || inv.Sold != 1 {
		t.Fatalf("after settle: reserved=%d sold=%d", inv.Reserved, inv.Sold)
	}
	if err := inv.Validate(); err != nil {
		t.Fatalf("Validate after settle: %v", err)
	}

	if err := inv.Allocate(1); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := inv.Release(1); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if inv.Available != 4 || inv.Reserved != 0 {
		t.Fatalf("after release: available=%d reserved=%d", inv.Available, inv.Reserved)
	}
}

func TestInventoryAllocateInsufficientStock(t *testing.T) {
	inv := Inventory{SKUID: "sku-1", Total: 1, Available: 0, Sold: 1}
	if err := inv.Allocate(1); err == nil {
		t.Fatal("expected error allocating from zero available")
	}
}

func TestInventoryReleaseMoreThanReserved(t *testing.T) {
	inv := Inventory{SKUID: "sku-1", Total: 1, Available: 1}
	if err := inv.Release(1); err == nil {
		t.Fatal("expected error releasing more than reserved")
	}
}
