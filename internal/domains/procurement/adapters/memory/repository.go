package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory purchase order persistence adapter.
type Repository struct {
	mu     sync.RWMutex
	orders map[int64]*domain.PurchaseOrder
	nextID int64
}

func NewRepository() *Repository {
	return &Repository{orders: map[int64]*domain.PurchaseOrder{}}
}

func (r *Repository) Save(_ context.Context, order *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if order == nil {
		return nil, errors.New("purchase order is nil")
	}
	clone := cloneOrder(order)
	r.mu.Lock()
	defer r.mu.Unlock()
	if clone.ID == 0 {
		r.nextID++
		clone.ID = r.nextID
	} else if clone.ID > r.nextID {
		r.nextID = clone.ID
	}
	r.orders[clone.ID] = clone
	return cloneOrder(clone), nil
}

func (r *Repository) FindByID(_ context.Context, id int64) (*domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (r *Repository) FindByShipmentID(_ context.Context, shipmentID string) (*domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, order := range r.orders {
		if shipmentID != "" && order.Shipping.ShipmentID == shipmentID {
			return cloneOrder(order), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *Repository) FindByStatuses(_ context.Context, statuses []domain.Status) ([]*domain.PurchaseOrder, error) {
	wanted := make(map[domain.Status]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*domain.PurchaseOrder
	for _, order := range r.orders {
		if _, ok := wanted[order.Status]; ok {
			list = append(list, cloneOrder(order))
		}
	}
	sortByID(list)
	return list, nil
}

func (r *Repository) List(_ context.Context) ([]*domain.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.PurchaseOrder, 0, len(r.orders))
	for _, order := range r.orders {
		list = append(list, cloneOrder(order))
	}
	sortByID(list)
	return list, nil
}

func (r *Repository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ports.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *Repository) UpdateStatus(_ context.Context, id int64, status domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok || order.Status.IsTerminal() {
		return false, nil
	}
	order.Status = status
	return true, nil
}

func (r *Repository) UpdateShipmentID(_ context.Context, id int64, shipmentID string) (bool, error) {
	return r.mutate(id, func(o *domain.PurchaseOrder) { o.Shipping.ShipmentID = shipmentID })
}

func (r *Repository) UpdateShippingDetails(_ context.Context, id int64, bankAccount string, price float64) (bool, error) {
	return r.mutate(id, func(o *domain.PurchaseOrder) {
		o.Shipping.BankAccount = bankAccount
		o.Shipping.Price = price
	})
}

func (r *Repository) RecordDelivery(_ context.Context, id int64, quantity int64) (*domain.PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if _, err := order.RecordDelivery(quantity); err != nil {
		return nil, err
	}
	return cloneOrder(order), nil
}

func (r *Repository) mutate(id int64, fn func(*domain.PurchaseOrder)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	fn(order)
	return true, nil
}

func cloneOrder(order *domain.PurchaseOrder) *domain.PurchaseOrder {
	clone := *order
	if order.Material != nil {
		material := *order.Material
		clone.Material = &material
	}
	return &clone
}

func sortByID(list []*domain.PurchaseOrder) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
