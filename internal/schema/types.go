package schema

import "strings"

// Coordinates are produced by geocoding and consumed by the forecast fetch.
type Coordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Location is a human-entered place. Explicit coordinates, when both are set,
// take precedence over the text fields.
type Location struct {
	Name      string   `json:"name,omitempty" validate:"max=200"`
	City      string   `json:"city,omitempty" validate:"max=100"`
	Region    string   `json:"region,omitempty" validate:"max=100"`
	Country   string   `json:"country,omitempty" validate:"max=100"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// Coordinates returns the explicit coordinates, if both are present.
func (l Location) Coordinates() (Coordinates, bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}, true
}

// HasText reports whether any free-text field is set.
func (l Location) HasText() bool {
	for _, s := range []string{l.Name, l.City, l.Region, l.Country} {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

type Plan struct {
	PlanID      string    `json:"planId" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
	Status      string    `json:"status,omitempty" validate:"omitempty,oneof=active archived draft"`
	StartDate   string    `json:"startDate,omitempty" validate:"omitempty,calendar_date"`
	EndDate     string    `json:"endDate,omitempty" validate:"omitempty,calendar_date"`
	Location    *Location `json:"location,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty"`
	CreatedAt   string    `json:"createdAt,omitempty"`
	UpdatedAt   string    `json:"updatedAt,omitempty"`
}

type PlanCreate struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description,omitempty" validate:"max=2000"`
	Status      string    `json:"status,omitempty" validate:"omitempty,oneof=active archived draft"`
	StartDate   string    `json:"startDate,omitempty" validate:"omitempty,calendar_date"`
	EndDate     string    `json:"endDate,omitempty" validate:"omitempty,calendar_date"`
	Location    *Location `json:"location,omitempty"`
}

// PlanPatch carries only the fields being changed.
type PlanPatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      *string   `json:"status,omitempty" validate:"omitempty,oneof=active archived draft"`
	StartDate   *string   `json:"startDate,omitempty" validate:"omitempty,calendar_date"`
	EndDate     *string   `json:"endDate,omitempty" validate:"omitempty,calendar_date"`
	Location    *Location `json:"location,omitempty"`
}

type Participant struct {
	ParticipantID string  `json:"participantId" validate:"required"`
	PlanID        string  `json:"planId" validate:"required"`
	UserID        *string `json:"userId,omitempty"`
	Name          string  `json:"name" validate:"required,max=100"`
	LastName      string  `json:"lastName,omitempty" validate:"max=100"`
	DisplayName   string  `json:"displayName,omitempty" validate:"max=100"`
	Role          string  `json:"role" validate:"required,oneof=owner participant viewer"`
	RSVPStatus    string  `json:"rsvpStatus,omitempty" validate:"omitempty,oneof=pending confirmed not_sure"`
	InviteStatus  string  `json:"inviteStatus,omitempty" validate:"omitempty,oneof=pending invited accepted"`
	ContactEmail  string  `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone  string  `json:"contactPhone,omitempty" validate:"omitempty,max=32"`
	CreatedAt     string  `json:"createdAt,omitempty"`
	UpdatedAt     string  `json:"updatedAt,omitempty"`
}

type ParticipantCreate struct {
	Name         string `json:"name" validate:"required,max=100"`
	LastName     string `json:"lastName,omitempty" validate:"max=100"`
	DisplayName  string `json:"displayName,omitempty" validate:"max=100"`
	Role         string `json:"role" validate:"required,oneof=owner participant viewer"`
	ContactEmail string `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone string `json:"contactPhone,omitempty" validate:"omitempty,max=32"`
}

type ParticipantPatch struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName     *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	DisplayName  *string `json:"displayName,omitempty" validate:"omitempty,max=100"`
	Role         *string `json:"role,omitempty" validate:"omitempty,oneof=owner participant viewer"`
	RSVPStatus   *string `json:"rsvpStatus,omitempty" validate:"omitempty,oneof=pending confirmed not_sure"`
	ContactEmail *string `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone *string `json:"contactPhone,omitempty" validate:"omitempty,max=32"`
}

type Item struct {
	ItemID                string  `json:"itemId" validate:"required"`
	PlanID                string  `json:"planId" validate:"required"`
	Name                  string  `json:"name" validate:"required,max=200"`
	Category              string  `json:"category" validate:"required,oneof=equipment food"`
	Quantity              int     `json:"quantity" validate:"min=1"`
	Unit                  string  `json:"unit,omitempty" validate:"max=32"`
	Status                string  `json:"status" validate:"required,oneof=pending purchased packed canceled"`
	AssignedParticipantID *string `json:"assignedParticipantId,omitempty"`
	Notes                 string  `json:"notes,omitempty" validate:"max=2000"`
	CreatedAt             string  `json:"createdAt,omitempty"`
	UpdatedAt             string  `json:"updatedAt,omitempty"`
}

type ItemCreate struct {
	Name                  string  `json:"name" validate:"required,max=200"`
	Category              string  `json:"category" validate:"required,oneof=equipment food"`
	Quantity              int     `json:"quantity" validate:"min=1"`
	Unit                  string  `json:"unit,omitempty" validate:"max=32"`
	Status                string  `json:"status,omitempty" validate:"omitempty,oneof=pending purchased packed canceled"`
	AssignedParticipantID *string `json:"assignedParticipantId,omitempty"`
	Notes                 string  `json:"notes,omitempty" validate:"max=2000"`
}

type ItemPatch struct {
	Name                  *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Category              *string `json:"category,omitempty" validate:"omitempty,oneof=equipment food"`
	Quantity              *int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	Unit                  *string `json:"unit,omitempty" validate:"omitempty,max=32"`
	Status                *string `json:"status,omitempty" validate:"omitempty,oneof=pending purchased packed canceled"`
	AssignedParticipantID *string `json:"assignedParticipantId,omitempty"`
	Notes                 *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Invite is the landing payload for an invite link. It is readable without a
// session, so it only carries previews.
type Invite struct {
	PlanID        string             `json:"planId" validate:"required"`
	ParticipantID string             `json:"participantId" validate:"required"`
	InviteToken   string             `json:"inviteToken" validate:"required"`
	Plan          PlanPreview        `json:"plan"`
	Participant   ParticipantPreview `json:"participant"`
}

type PlanPreview struct {
	Title     string    `json:"title" validate:"required"`
	StartDate string    `json:"startDate,omitempty" validate:"omitempty,calendar_date"`
	EndDate   string    `json:"endDate,omitempty" validate:"omitempty,calendar_date"`
	Location  *Location `json:"location,omitempty"`
}

type ParticipantPreview struct {
	Name        string `json:"name" validate:"required"`
	LastName    string `json:"lastName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role" validate:"required,oneof=owner participant viewer"`
}

// PendingInvite survives the identity-provider redirect between following an
// invite link and signing in.
type PendingInvite struct {
	PlanID      string `json:"planId" validate:"required"`
	InviteToken string `json:"inviteToken" validate:"required"`
}

type User struct {
	ID    string `json:"id" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type ForecastDay struct {
	Date             string  `json:"date" validate:"required,datetime=2006-01-02"`
	TemperatureMax   float64 `json:"temperatureMax"`
	TemperatureMin   float64 `json:"temperatureMin"`
	PrecipitationSum float64 `json:"precipitationSum" validate:"gte=0"`
	WeatherCode      int     `json:"weatherCode" validate:"gte=0"`
}

// Forecast is never empty; an empty day list is a typed failure upstream.
type Forecast struct {
	Latitude  float64       `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64       `json:"longitude" validate:"gte=-180,lte=180"`
	Days      []ForecastDay `json:"days" validate:"required,min=1,dive"`
}
