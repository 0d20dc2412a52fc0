package application

import "github.com/cargoflow/tracking-service/internal/domain"

// ToShipmentDTO converts a domain Shipment to ShipmentDTO
func ToShipmentDTO(shipment *domain.Shipment) *ShipmentDTO {
	if shipment == nil {
		return nil
	}

	return &ShipmentDTO{
		AWB:             shipment.AWB,
		Status:          shipment.Status.String(),
		CurrentLocation: shipment.CurrentLocation,
		Sender:          ToContactDTO(shipment.Sender),
		Receiver:        ToContactDTO(shipment.Receiver),
		Package:         ToPackageDetailsDTO(shipment.Package),
		History:         ToTrackingEventDTOs(shipment.History),
		Version:         shipment.Version,
		CreatedAt:       shipment.CreatedAt,
		UpdatedAt:       shipment.UpdatedAt,
	}
}

// ToTrackingEventDTO converts a domain TrackingEvent to TrackingEventDTO
func ToTrackingEventDTO(event domain.TrackingEvent) TrackingEventDTO {
	return TrackingEventDTO{
		ID:          event.ID,
		Status:      event.Status.String(),
		Location:    event.Location,
		Description: event.Description,
		RecordedBy:  event.RecordedBy,
		Timestamp:   event.Timestamp,
	}
}

// ToTrackingEventDTOs converts a slice of domain TrackingEvents to DTOs
func ToTrackingEventDTOs(events []domain.TrackingEvent) []TrackingEventDTO {
	dtos := make([]TrackingEventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, ToTrackingEventDTO(event))
	}
	return dtos
}

// ToContactDTO converts a domain Contact to ContactDTO
func ToContactDTO(contact domain.Contact) ContactDTO {
	return ContactDTO{
		Name:    contact.Name,
		Phone:   contact.Phone,
		Email:   contact.Email,
		Address: contact.Address,
		City:    contact.City,
		Country: contact.Country,
	}
}

// ToPackageDetailsDTO converts a domain PackageDetails to PackageDetailsDTO
func ToPackageDetailsDTO(pkg domain.PackageDetails) PackageDetailsDTO {
	return PackageDetailsDTO{
		WeightKg:      pkg.WeightKg,
		Dimensions:    ToDimensionsDTO(pkg.Dimensions),
		DeclaredValue: pkg.DeclaredValue,
		Description:   pkg.Description,
	}
}

// ToDimensionsDTO converts a domain Dimensions to DimensionsDTO
func ToDimensionsDTO(dimensions domain.Dimensions) DimensionsDTO {
	return DimensionsDTO{
		Length: dimensions.Length,
		Width:  dimensions.Width,
		Height: dimensions.Height,
	}
}

// ToShipmentDTOs converts a slice of domain Shipments to ShipmentDTOs
func ToShipmentDTOs(shipments []*domain.Shipment) []ShipmentDTO {
	dtos := make([]ShipmentDTO, 0, len(shipments))
	for _, shipment := range shipments {
		if dto := ToShipmentDTO(shipment); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}
