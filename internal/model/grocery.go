package model

import "time"

type GroceryType string

const (
	GroceryTypeWeight GroceryType = "weight"
	GroceryTypeSack   GroceryType = "sack"
	GroceryTypeCan    GroceryType = "can"
	GroceryTypePiece  GroceryType = "piece"
	GroceryTypePacket GroceryType = "packet"
	GroceryTypeBottle GroceryType = "bottle"
)

// GroceryTypes lists every grocery type in display order.
var GroceryTypes = []GroceryType{
	GroceryTypeWeight, GroceryTypeSack, GroceryTypeCan,
	GroceryTypePiece, GroceryTypePacket, GroceryTypeBottle,
}

func (t GroceryType) Valid() bool {
	for _, v := range GroceryTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Seller string

const (
	SellerMeena   Seller = "meena"
	SellerShwapno Seller = "shwapno"
	SellerLocal   Seller = "local"
	SellerComilla Seller = "comilla"
	SellerAgora   Seller = "agora"
)

// Sellers lists every known seller in display order.
var Sellers = []Seller{SellerMeena, SellerShwapno, SellerLocal, SellerComilla, SellerAgora}

func (s Seller) Valid() bool {
	for _, v := range Sellers {
		if s == v {
			return true
		}
	}
	return false
}

type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusBelowStock StockStatus = "below_stock"
)

// GroceryItem is one row of the inventory list as returned by the collection endpoint.
type GroceryItem struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Brand             string      `json:"brand"`
	Type              GroceryType `json:"type"`
	CurrentPrice      float64     `json:"current_price"`
	CurrentSeller     Seller      `json:"current_seller"`
	LowStockThreshold int         `json:"low_stock_threshold"`
	QuantityInStock   int         `json:"quantity_in_stock"`
	ShouldInclude     bool        `json:"should_include"`
	BestPrice         float64     `json:"best_price"`
	BestSeller        Seller      `json:"best_seller"`
	StockStatus       StockStatus `json:"stock_status"`
}

// GroceryDetail is a single item with its server-assigned timestamps.
type GroceryDetail struct {
	GroceryItem
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GroceryCreateRequest struct {
	Name              string      `json:"name"`
	Brand             string      `json:"brand"`
	Type              GroceryType `json:"type"`
	CurrentPrice      float64     `json:"current_price"`
	CurrentSeller     Seller      `json:"current_seller"`
	LowStockThreshold int         `json:"low_stock_threshold"`
	QuantityInStock   int         `json:"quantity_in_stock"`
}

type GroceryUpdateRequest struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Brand             string      `json:"brand"`
	Type              GroceryType `json:"type"`
	CurrentPrice      float64     `json:"current_price"`
	CurrentSeller     Seller      `json:"current_seller"`
	LowStockThreshold int         `json:"low_stock_threshold"`
	QuantityInStock   int         `json:"quantity_in_stock"`
	ShouldInclude     bool        `json:"should_include"`
}

// NewUpdateRequest prefills an update payload from a fetched detail.
func NewUpdateRequest(d GroceryDetail) GroceryUpdateRequest {
	return GroceryUpdateRequest{
		ID:                d.ID,
		Name:              d.Name,
		Brand:             d.Brand,
		Type:              d.Type,
		CurrentPrice:      d.CurrentPrice,
		CurrentSeller:     d.CurrentSeller,
		LowStockThreshold: d.LowStockThreshold,
		QuantityInStock:   d.QuantityInStock,
		ShouldInclude:     d.ShouldInclude,
	}
}

// NewCreateRequest returns an empty create payload with the form defaults.
func NewCreateRequest() GroceryCreateRequest {
	return GroceryCreateRequest{
		Type:              GroceryTypeCan,
		CurrentSeller:     SellerMeena,
		LowStockThreshold: 1,
	}
}

// StockStatusFor classifies a quantity against its low stock threshold.
// An item sitting exactly at the threshold is already below stock.
func StockStatusFor(quantity, threshold int) StockStatus {
	if quantity <= threshold {
		return StockStatusBelowStock
	}
	return StockStatusInStock
}

// NextBestOffer folds a newly observed price into the best known offer.
// Ties keep the existing best seller.
func NextBestOffer(bestPrice float64, bestSeller Seller, price float64, seller Seller) (float64, Seller) {
	if price < bestPrice {
		return price, seller
	}
	return bestPrice, bestSeller
}
