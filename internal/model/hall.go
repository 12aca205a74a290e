package model

import "time"

// Hall represents a bookable campus venue.  Halls are grouped into
// administrative blocks; an admin may only manage halls of the blocks
// listed in their account.  BlockStatus disables a hall for new
// bookings without touching existing ones.
//
// Fields:
//
//	Name               – unique hall name (natural key).
//	Block              – administrative zone, e.g. "A" or "PEB".
//	Capacity           – number of seats.
//	Location           – human readable location.
//	Description        – optional description.
//	LaptopCharging     – whether charging points are available.
//	ProjectorAvailable – whether a projector is installed.
//	ProjectorCount     – number of projectors.
//	Image              – optional image URL.
//	BlockStatus        – administratively disabled when true.
//	CreatedAt          – creation timestamp.
//	UpdatedAt          – last update timestamp.
type Hall struct {
	Name               string    `json:"name"`
	Block              string    `json:"block"`
	Capacity           int       `json:"capacity"`
	Location           string    `json:"location"`
	Description        string    `json:"description"`
	LaptopCharging     bool      `json:"laptopCharging"`
	ProjectorAvailable bool      `json:"projectorAvailable"`
	ProjectorCount     int       `json:"projectorCount"`
	Image              string    `json:"image,omitempty"`
	BlockStatus        bool      `json:"blockStatus"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
