package application

import "time"

// ShipmentDTO represents a shipment in responses
type ShipmentDTO struct {
	AWB             string             `json:"awb"`
	Status          string             `json:"status"`
	CurrentLocation string             `json:"currentLocation"`
	Sender          ContactDTO         `json:"sender"`
	Receiver        ContactDTO         `json:"receiver"`
	Package         PackageDetailsDTO  `json:"package"`
	History         []TrackingEventDTO `json:"history"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// TrackingEventDTO represents a single tracking event in responses
type TrackingEventDTO struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	RecordedBy  string    `json:"recordedBy,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ContactDTO represents sender or receiver details
type ContactDTO struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// PackageDetailsDTO represents the package snapshot
type PackageDetailsDTO struct {
	WeightKg      float64       `json:"weightKg"`
	Dimensions    DimensionsDTO `json:"dimensions"`
	DeclaredValue float64       `json:"declaredValue,omitempty"`
	Description   string        `json:"description,omitempty"`
}

// DimensionsDTO represents package dimensions in cm
type DimensionsDTO struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ShipmentListDTO represents a paginated list of shipments
type ShipmentListDTO struct {
	Items    []ShipmentDTO `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}
