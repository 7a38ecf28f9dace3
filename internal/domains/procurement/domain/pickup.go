package domain

import "fmt"

const (
	UnitKilogram  = "kg"
	UnitEquipment = "unit"
)

// PickupItem describes cargo handed to the logistics provider.
type PickupItem struct {
	Name     string
	Quantity float64
	Unit     string
}

// PickupItems builds the cargo list for the order. Equipment orders ship as a unit count
// derived from the declared equipment weight; material orders ship by quantity in kilograms.
func PickupItems(o *PurchaseOrder, equipmentWeight float64) ([]PickupItem, error) {
	switch {
	case !o.HasValidClassification():
		return nil, ErrInvalidClassification
	case o.IsEquipmentOrder:
		if equipmentWeight <= 0 {
			return nil, fmt.Errorf("equipment weight must be greater than zero, got %v", equipmentWeight)
		}
		return []PickupItem{{
			Name:     "equipment",
			Quantity: equipmentWeight * float64(o.Quantity),
			Unit:     UnitEquipment,
		}}, nil
	default:
		return []PickupItem{{
			Name:     o.Material.Name,
			Quantity: float64(o.Quantity),
			Unit:     UnitKilogram,
		}}, nil
	}
}
