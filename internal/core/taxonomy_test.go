package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestTaxonomy_Lookup(t *testing.T) {
	tax := NewTaxonomy([]ShipType{{ID: 1, Name: "Oil Tanker"}, {ID: 2, Name: "Bulk Carrier"}})

	for _, name := range []string{"Oil Tanker", "oil tanker", "  OIL   tanker "} {
		st, ok := tax.Lookup(name)
		if !ok || st.ID != 1 {
			t.Errorf("Lookup(%q) = %v, %v", name, st, ok)
		}
	}
	if _, ok := tax.Lookup("Oil"); ok {
		t.Error("partial name matched")
	}
	if want := []string{"Bulk Carrier", "Oil Tanker"}; !reflect.DeepEqual(tax.Names(), want) {
		t.Errorf("Names = %v, want %v", tax.Names(), want)
	}
	if tax.Len() != 2 {
		t.Errorf("Len = %d", tax.Len())
	}

	names := tax.Names()
	names[0] = "mutated"
	if tax.Names()[0] != "Bulk Carrier" {
		t.Error("Names exposes internal slice")
	}
}

type shipTypeLister struct {
	Querier
	types []ShipType
	err   error
}

func (l shipTypeLister) ListShipTypes(context.Context) ([]ShipType, error) { return l.types, l.err }

func TestLoadTaxonomy(t *testing.T) {
	tax, err := LoadTaxonomy(context.Background(), shipTypeLister{types: []ShipType{{ID: 7, Name: "Tug"}}})
	if err != nil {
		t.Fatalf("LoadTaxonomy: %v", err)
	}
	if st, ok := tax.Lookup("tug"); !ok || st.ID != 7 {
		t.Errorf("Lookup(tug) = %v, %v", st, ok)
	}

	boom := errors.New("boom")
	if _, err := LoadTaxonomy(context.Background(), shipTypeLister{err: boom}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
