package domain

import "time"

// Submittable is a public form payload.
type Submittable interface {
	SubmissionKind() SubmissionKind
}

type ContactMessage struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"required,max=5000"`
}

func (ContactMessage) SubmissionKind() SubmissionKind { return SubmissionContact }

type BookingRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"max=40"`
	RoomID   string `json:"room_id" validate:"max=64"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests   int    `json:"guests" validate:"min=1,max=20"`
	Message  string `json:"message" validate:"max=5000"`
}

func (BookingRequest) SubmissionKind() SubmissionKind { return SubmissionBooking }

type EventInquiry struct {
	EventID string `json:"event_id" validate:"required,max=64"`
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"max=5000"`
}

func (EventInquiry) SubmissionKind() SubmissionKind { return SubmissionEvent }

type WineInquiry struct {
	WineID  string `json:"wine_id" validate:"max=64"`
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"max=5000"`
}

func (WineInquiry) SubmissionKind() SubmissionKind { return SubmissionWine }

type RestaurantReservation struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=40"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string `json:"time" validate:"required,datetime=15:04"`
	Guests  int    `json:"guests" validate:"min=1,max=30"`
	Message string `json:"message" validate:"max=2000"`
}

func (RestaurantReservation) SubmissionKind() SubmissionKind { return SubmissionReservation }

// Submission is the admin read model shared by every submission table.
type Submission struct {
	Kind      SubmissionKind    `json:"kind"`
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Message   string            `json:"message,omitempty"`
	RelatedID string            `json:"related_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
}
