package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists purchase orders in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// purchaseOrderRecord maps the purchase order aggregate to a relational table.
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

// Save inserts a new purchase order or overwrites an existing one with the same id.
func (r *Repository) Save(ctx context.Context, order *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("purchase order is nil")
	}
	record := toRecord(order)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"external_ref":           record.ExternalRef,
				"quantity":               record.Quantity,
				"quantity_delivered":     record.QuantityDelivered,
				"unit_price":             record.UnitPrice,
				"origin":                 record.Origin,
				"seller_bank_account":    record.SellerBankAccount,
				"is_equipment_order":     record.IsEquipmentOrder,
				"material_id":            record.MaterialID,
				"material_name":          record.MaterialName,
				"shipment_id":            record.ShipmentID,
				"logistics_bank_account": record.LogisticsBankAccount,
				"shipping_price":         record.ShippingPrice,
				"status":                 record.Status,
				"updated_at":             gorm.Expr("NOW()"),
			}),
		}).Create(&record).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, record.ID)
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) FindByShipmentID(ctx context.Context, shipmentID string) (*domain.PurchaseOrder, error) {
	if shipmentID == "" {
		return nil, ports.ErrNotFound
	}
	return r.first(ctx, "shipment_id = ?", shipmentID)
}

// FindByStatuses returns orders whose status is one of statuses, ordered by id.
func (r *Repository) FindByStatuses(ctx context.Context, statuses []domain.Status) ([]*domain.PurchaseOrder, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return []*domain.PurchaseOrder{}, nil
	}
	values := make(pq.StringArray, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	var records []purchaseOrderRecord
	if err := r.db.WithContext(ctx).Where("status = ANY(?)", values).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	return toDomainList(records), nil
}

func (r *Repository) List(ctx context.Context) ([]*domain.PurchaseOrder, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var records []purchaseOrderRecord
	if err := r.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	return toDomainList(records), nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.Status) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Model(&purchaseOrderRecord{}).
		Where("id = ? AND status NOT IN ?", id, []string{string(domain.StatusDelivered), string(domain.StatusAbandoned)}).
		Updates(map[string]any{"status": string(status), "updated_at": gorm.Expr("NOW()")})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) UpdateShipmentID(ctx context.Context, id int64, shipmentID string) (bool, error) {
	return r.update(ctx, id, map[string]any{"shipment_id": shipmentID})
}

func (r *Repository) UpdateShippingDetails(ctx context.Context, id int64, bankAccount string, price float64) (bool, error) {
	return r.update(ctx, id, map[string]any{
		"logistics_bank_account": bankAccount,
		"shipping_price":         price,
	})
}

// RecordDelivery applies a drop-off under a row lock, so concurrent deliveries and abandons serialize.
func (r *Repository) RecordDelivery(ctx context.Context, id int64, quantity int64) (*domain.PurchaseOrder, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var updated *domain.PurchaseOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record purchaseOrderRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ports.ErrNotFound
			}
			return err
		}
		order := record.toDomain()
		if _, err := order.RecordDelivery(quantity); err != nil {
			return err
		}
		err := tx.Model(&purchaseOrderRecord{}).Where("id = ?", id).Updates(map[string]any{
			"quantity_delivered": order.QuantityDelivered,
			"status":             string(order.Status),
			"updated_at":         gorm.Expr("NOW()"),
		}).Error
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a purchase order by identifier.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&purchaseOrderRecord{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*domain.PurchaseOrder, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var record purchaseOrderRecord
	if err := r.db.WithContext(ctx).First(&record, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// update reports false when no row carries id.
func (r *Repository) update(ctx context.Context, id int64, columns map[string]any) (bool, error) {
	if err := r.ensureDB(); err != nil {
		return false, err
	}
	columns["updated_at"] = gorm.Expr("NOW()")
	result := r.db.WithContext(ctx).Model(&purchaseOrderRecord{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres purchase order repository not configured")
	}
	return nil
}

func toRecord(order *domain.PurchaseOrder) purchaseOrderRecord {
	rec := purchaseOrderRecord{
		ID:                   order.ID,
		ExternalRef:          order.ExternalRef,
		Quantity:             order.Quantity,
		QuantityDelivered:    order.QuantityDelivered,
		UnitPrice:            order.UnitPrice,
		Origin:               order.Origin,
		SellerBankAccount:    order.SellerBankAccount,
		IsEquipmentOrder:     order.IsEquipmentOrder,
		ShipmentID:           order.Shipping.ShipmentID,
		LogisticsBankAccount: order.Shipping.BankAccount,
		ShippingPrice:        order.Shipping.Price,
		Status:               string(order.Status),
	}
	if order.Material != nil {
		id := order.Material.ID
		rec.MaterialID = &id
		rec.MaterialName = order.Material.Name
	}
	return rec
}

func (r purchaseOrderRecord) toDomain() *domain.PurchaseOrder {
	order := &domain.PurchaseOrder{
		ID:                r.ID,
		ExternalRef:       r.ExternalRef,
		Quantity:          r.Quantity,
		QuantityDelivered: r.QuantityDelivered,
		UnitPrice:         r.UnitPrice,
		Origin:            r.Origin,
		SellerBankAccount: r.SellerBankAccount,
		IsEquipmentOrder:  r.IsEquipmentOrder,
		Shipping: domain.Shipping{
			ShipmentID:  r.ShipmentID,
			BankAccount: r.LogisticsBankAccount,
			Price:       r.ShippingPrice,
		},
		Status: domain.Status(r.Status),
	}
	if r.MaterialID != nil {
		order.Material = &domain.RawMaterial{ID: *r.MaterialID, Name: r.MaterialName}
	}
	return order
}

func toDomainList(records []purchaseOrderRecord) []*domain.PurchaseOrder {
	orders := make([]*domain.PurchaseOrder, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toDomain())
	}
	return orders
}
