package commands

import (
	"github.com/Apurer/procurement-engine/internal/domains/procurement/domain"
	"github.com/Apurer/procurement-engine/internal/domains/procurement/ports"
)

// Factory maps an order's persisted status to the command that must run next.
type Factory struct {
	repo     ports.Repository
	payments ports.PaymentGateway
	shipping ports.ShippingGateway
	catalog  ports.EquipmentCatalog
	settings ports.SettingsProvider
}

func NewFactory(repo ports.Repository, payments ports.PaymentGateway, shipping ports.ShippingGateway, catalog ports.EquipmentCatalog, settings ports.SettingsProvider) *Factory {
	return &Factory{repo: repo, payments: payments, shipping: shipping, catalog: catalog, settings: settings}
}

// CreateCommand binds the command for order.Status to order.
func (f *Factory) CreateCommand(order *domain.PurchaseOrder) Command {
	settings := f.currentSettings()
	switch order.Status {
	case domain.StatusRequiresPaymentToSupplier:
		return NewPaySupplier(order, f.repo, f.payments, settings.CompanyBankAccount)
	case domain.StatusRequiresDelivery:
		return NewRequestShipping(order, f.repo, f.shipping, f.catalog, settings.CompanyID)
	case domain.StatusRequiresPaymentToLogistics:
		return NewPayLogistics(order, f.repo, f.payments, settings.CompanyBankAccount)
	default:
		return NewNoOp(order.Status)
	}
}

func (f *Factory) currentSettings() ports.Settings {
	if f.settings == nil {
		return ports.Settings{}
	}
	return f.settings.Current()
}
