package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestStockStatusFor(t *testing.T) {
	tests := []struct {
		quantity  int
		threshold int
		want      StockStatus
	}{
		{0, 0, StockStatusBelowStock},
		{1, 0, StockStatusInStock},
		{5, 5, StockStatusBelowStock},
		{4, 5, StockStatusBelowStock},
		{6, 5, StockStatusInStock},
	}
	for _, tt := range tests {
		got := StockStatusFor(tt.quantity, tt.threshold)
		if got != tt.want {
			t.Errorf("StockStatusFor(%d, %d) = %q, want %q", tt.quantity, tt.threshold, got, tt.want)
		}
	}
}

func TestNextBestOffer(t *testing.T) {
	price, seller := NextBestOffer(100, SellerMeena, 90, SellerAgora)
	if price != 90 || seller != SellerAgora {
		t.Errorf("lower price: got (%v, %q), want (90, agora)", price, seller)
	}

	price, seller = NextBestOffer(100, SellerMeena, 100, SellerAgora)
	if price != 100 || seller != SellerMeena {
		t.Errorf("tie: got (%v, %q), want (100, meena)", price, seller)
	}

	price, seller = NextBestOffer(100, SellerMeena, 120, SellerLocal)
	if price != 100 || seller != SellerMeena {
		t.Errorf("higher price: got (%v, %q), want (100, meena)", price, seller)
	}
}

func TestEnumValid(t *testing.T) {
	for _, gt := range GroceryTypes {
		if !gt.Valid() {
			t.Errorf("GroceryType %q should be valid", gt)
		}
	}
	if GroceryType("crate").Valid() {
		t.Error("expected crate to be invalid")
	}
	for _, s := range Sellers {
		if !s.Valid() {
			t.Errorf("Seller %q should be valid", s)
		}
	}
	if Seller("amazon").Valid() {
		t.Error("expected amazon to be invalid")
	}
}

func TestNewUpdateRequest(t *testing.T) {
	d := GroceryDetail{
		GroceryItem: GroceryItem{
			ID:                "a1",
			Name:              "Rice",
			Brand:             "Chashi",
			Type:              GroceryTypeSack,
			CurrentPrice:      850,
			CurrentSeller:     SellerShwapno,
			LowStockThreshold: 1,
			QuantityInStock:   3,
			ShouldInclude:     true,
			BestPrice:         800,
			BestSeller:        SellerLocal,
			StockStatus:       StockStatusInStock,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	req := NewUpdateRequest(d)
	want := GroceryUpdateRequest{
		ID:                "a1",
		Name:              "Rice",
		Brand:             "Chashi",
		Type:              GroceryTypeSack,
		CurrentPrice:      850,
		CurrentSeller:     SellerShwapno,
		LowStockThreshold: 1,
		QuantityInStock:   3,
		ShouldInclude:     true,
	}
	if req != want {
		t.Errorf("NewUpdateRequest = %+v, want %+v", req, want)
	}
}

func TestParseEditAndApply(t *testing.T) {
	inputs := [][2]string{
		{"name", " Lentils "},
		{"brand", "Pran"},
		{"type", "Packet"},
		{"current_price", "$120"},
		{"seller", "agora"},
		{"low_stock_threshold", "2"},
		{"quantity", "7"},
		{"include", "NO"},
	}

	var edits []Edit
	for _, in := range inputs {
		e, err := ParseEdit(in[0], in[1])
		if err != nil {
			t.Fatalf("ParseEdit(%q, %q): %v", in[0], in[1], err)
		}
		edits = append(edits, e)
	}

	upd := GroceryUpdateRequest{ID: "x", ShouldInclude: true}
	upd.Apply(edits...)
	if upd.Name != "Lentils" || upd.Brand != "Pran" || upd.Type != GroceryTypePacket {
		t.Errorf("unexpected strings after apply: %+v", upd)
	}
	if upd.CurrentPrice != 120 || upd.CurrentSeller != SellerAgora {
		t.Errorf("unexpected price/seller after apply: %+v", upd)
	}
	if upd.LowStockThreshold != 2 || upd.QuantityInStock != 7 || upd.ShouldInclude {
		t.Errorf("unexpected numbers after apply: %+v", upd)
	}
	if upd.ID != "x" {
		t.Errorf("id changed to %q", upd.ID)
	}

	cr := NewCreateRequest()
	cr.Apply(edits...)
	if cr.Name != "Lentils" || cr.QuantityInStock != 7 || cr.CurrentSeller != SellerAgora {
		t.Errorf("unexpected create after apply: %+v", cr)
	}
}

func TestParseEditErrors(t *testing.T) {
	tests := []struct {
		field string
		value string
	}{
		{"type", "crate"},
		{"current_seller", "amazon"},
		{"current_price", "cheap"},
		{"price", "NaN"},
		{"price", "Inf"},
		{"price", "+Inf"},
		{"price", "$-Inf"},
		{"quantity_in_stock", "1.5"},
		{"should_include", "maybe"},
		{"best_price", "10"},
	}
	for _, tt := range tests {
		if _, err := ParseEdit(tt.field, tt.value); err == nil {
			t.Errorf("ParseEdit(%q, %q) expected error", tt.field, tt.value)
		}
	}

	_, err := ParseEdit("stock_status", "in_stock")
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cr := NewCreateRequest()
	cr.Apply(SetName("Oil"), SetBrand("Rupchanda"), SetCurrentPrice(190), SetQuantityInStock(2))
	if err := cr.Validate(); err != nil {
		t.Errorf("valid create: %v", err)
	}

	bad := GroceryCreateRequest{Type: "crate", CurrentPrice: -1, QuantityInStock: -2}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for invalid create")
	}

	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		cr := NewCreateRequest()
		cr.Apply(SetName("Oil"), SetBrand("Rupchanda"), SetCurrentPrice(price))
		if err := cr.Validate(); err == nil {
			t.Errorf("expected error for create with price %v", price)
		}
		ur := GroceryUpdateRequest{ID: "b2", Name: "Oil", Brand: "Rupchanda", Type: GroceryTypeBottle, CurrentSeller: SellerLocal, CurrentPrice: price}
		if err := ur.Validate(); err == nil {
			t.Errorf("expected error for update with price %v", price)
		}
	}

	upd := GroceryUpdateRequest{Name: "Oil", Brand: "Rupchanda", Type: GroceryTypeBottle, CurrentSeller: SellerLocal}
	if err := upd.Validate(); err == nil {
		t.Error("expected error for update without id")
	}
	upd.ID = "b2"
	if err := upd.Validate(); err != nil {
		t.Errorf("valid update: %v", err)
	}
}
