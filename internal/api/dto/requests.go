package dto

import (
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/internal/domain/ride"
	"github.com/busterbike/ride-tracker/internal/repository/history"
	"github.com/busterbike/ride-tracker/internal/service/notify"
)

// LocationSampleRequest is one device position report
type LocationSampleRequest struct {
	Latitude  *float64   `json:"latitude" binding:"required"`
	Longitude *float64   `json:"longitude" binding:"required"`
	Mocked    bool       `json:"mocked"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Sample converts the request into a ride sample
func (r LocationSampleRequest) Sample() ride.Sample {
	s := ride.Sample{Mocked: r.Mocked}
	if r.Latitude != nil {
		s.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		s.Longitude = *r.Longitude
	}
	if r.Timestamp != nil {
		s.ReceivedAt = *r.Timestamp
	}
	return s
}

// LocationErrorRequest reports a failing location source
type LocationErrorRequest struct {
	Message string `json:"message" binding:"required"`
}

// NotesRequest replaces the rider's notes about the bike
type NotesRequest struct {
	Notes string `json:"notes"`
}

// LoginRequest represents a login against the bike-sharing server
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RideResponse describes the ride in progress, if any
type RideResponse struct {
	Active         bool                 `json:"active"`
	Session        *ride.Session        `json:"session,omitempty"`
	DrivenDistance string               `json:"driven_distance,omitempty"`
	Notification   *notify.Notification `json:"notification,omitempty"`
}

// EquipmentResponse is the equipment report after a cycle
type EquipmentResponse struct {
	Capability string         `json:"capability"`
	Value      int            `json:"value"`
	Equipment  bike.Equipment `json:"equipment"`
}

// BikesResponse lists the known bikes
type BikesResponse struct {
	Bikes []bike.Bike `json:"bikes"`
}

// HistoryResponse lists completed rides
type HistoryResponse struct {
	Rides []history.Record `json:"rides"`
}

// Error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
