package migrations

import (
	"time"

	"gorm.io/gorm"
)

// Run applies the purchase order and idempotency key schema.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&purchaseOrderRecord{}, &idempotencyKeyRecord{})
}

// Purchase order schema mirrors the procurement Postgres adapter.
type purchaseOrderRecord struct {
	ID                   int64     `gorm:"primaryKey;column:id"`
	ExternalRef          string    `gorm:"column:external_ref;index"`
	Quantity             int64     `gorm:"column:quantity"`
	QuantityDelivered    int64     `gorm:"column:quantity_delivered"`
	UnitPrice            float64   `gorm:"column:unit_price;type:numeric(14,2)"`
	Origin               string    `gorm:"column:origin"`
	SellerBankAccount    string    `gorm:"column:seller_bank_account"`
	IsEquipmentOrder     bool      `gorm:"column:is_equipment_order"`
	MaterialID           *int64    `gorm:"column:material_id"`
	MaterialName         string    `gorm:"column:material_name"`
	ShipmentID           string    `gorm:"column:shipment_id;index"`
	LogisticsBankAccount string    `gorm:"column:logistics_bank_account"`
	ShippingPrice        float64   `gorm:"column:shipping_price;type:numeric(14,2)"`
	Status               string    `gorm:"column:status;type:varchar(48);index"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at;index"`
}

func (purchaseOrderRecord) TableName() string { return "purchase_orders" }

type idempotencyKeyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:64;not null"`
	OrderID     int64     `gorm:"column:order_id;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (idempotencyKeyRecord) TableName() string { return "order_idempotency_keys" }
