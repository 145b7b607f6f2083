package entities

import "time"

// PropertyType classifies the property in a sale record
type PropertyType string

const (
	PropertyDetached     PropertyType = "detached"
	PropertySemiDetached PropertyType = "semi_detached"
	PropertyTerraced     PropertyType = "terraced"
	PropertyFlat         PropertyType = "flat"
	PropertyOther        PropertyType = "other"
)

// Tenure classifies how the property is held
type Tenure string

const (
	TenureFreehold  Tenure = "freehold"
	TenureLeasehold Tenure = "leasehold"
	TenureUnknown   Tenure = "unknown"
)

// Transaction represents a single point-located property sale record.
// Transactions are read once per pipeline run and never mutated.
type Transaction struct {
	ID           string       `json:"id"`
	Price        float64      `json:"price"`
	Date         time.Time    `json:"date"`
	Postcode     string       `json:"postcode"`
	PropertyType PropertyType `json:"property_type"`
	NewBuild     bool         `json:"new_build"`
	Tenure       Tenure       `json:"tenure"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}
