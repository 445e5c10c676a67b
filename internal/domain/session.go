package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Flow string

const (
	FlowUpload Flow = "upload"
	FlowSearch Flow = "search"
)

// Step is the state a session is parked in, waiting for the user's next input.
type Step string

const (
	StepAwaitingVIN          Step = "upload.vin"
	StepAwaitingOEM          Step = "upload.oem"
	StepAwaitingName         Step = "upload.name"
	StepAwaitingPrice        Step = "upload.price"
	StepAwaitingDescription  Step = "upload.description"
	StepAwaitingPhoto        Step = "upload.photo"
	StepAwaitingConfirmation Step = "upload.confirm"

	StepChoosingMode     Step = "search.choose"
	StepAwaitingQuery    Step = "search.query"
	StepAwaitingPriceMin Step = "search.price_min"
	StepAwaitingPriceMax Step = "search.price_max"
)

var uploadOrder = []Step{
	StepAwaitingVIN,
	StepAwaitingOEM,
	StepAwaitingName,
	StepAwaitingPrice,
	StepAwaitingDescription,
	StepAwaitingPhoto,
	StepAwaitingConfirmation,
}

func (s Step) Flow() Flow {
	switch s {
	case StepChoosingMode, StepAwaitingQuery, StepAwaitingPriceMin, StepAwaitingPriceMax:
		return FlowSearch
	}
	for _, u := range uploadOrder {
		if u == s {
			return FlowUpload
		}
	}
	return ""
}

// Next returns the upload step that follows s, or "" when s is the last one or not an upload step.
func (s Step) Next() Step {
	for i, u := range uploadOrder {
		if u == s && i+1 < len(uploadOrder) {
			return uploadOrder[i+1]
		}
	}
	return ""
}

type SearchMode string

const (
	SearchKeyword SearchMode = "name"
	SearchVIN     SearchMode = "vin"
	SearchOEM     SearchMode = "oem"
)

func (m SearchMode) Valid() bool {
	return m == SearchKeyword || m == SearchVIN || m == SearchOEM
}

// Draft accumulates upload fields until the seller confirms.
type Draft struct {
	VIN         string          `json:"vin,omitempty"`
	OEM         string          `json:"oem,omitempty"`
	Name        string          `json:"name,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	PhotoRef    string          `json:"photo_ref,omitempty"`
}

type Session struct {
	UserID int64 `json:"user_id"`
	// Token is the session generation; a listing committed from this session is keyed by it.
	Token     string          `json:"token"`
	Step      Step            `json:"step"`
	Draft     Draft           `json:"draft"`
	Username  string          `json:"username,omitempty"`
	Mode      SearchMode      `json:"mode,omitempty"`
	PriceMin  decimal.Decimal `json:"price_min"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewUploadSession(userID int64, token string) *Session {
	return &Session{UserID: userID, Token: token, Step: StepAwaitingVIN}
}

func NewSearchSession(userID int64, token string) *Session {
	return &Session{UserID: userID, Token: token, Step: StepChoosingMode}
}

// EnterQuery moves a search session to AwaitingQuery. The mode is part of the transition,
// so a session can never wait for a query without knowing how to run it.
func (s *Session) EnterQuery(mode SearchMode) error {
	if !mode.Valid() {
		return ValidationError{Field: "mode", Value: mode, Message: "unknown search mode"}
	}
	s.Mode = mode
	s.Step = StepAwaitingQuery
	return nil
}

func (s *Session) Flow() Flow { return s.Step.Flow() }

// Listing builds the listing a confirmed upload session commits.
func (s *Session) Listing(uploaderID int64, now time.Time) Listing {
	oem := s.Draft.OEM
	if oem == "" {
		oem = NoOEM
	}
	return Listing{
		VIN:          s.Draft.VIN,
		OEM:          oem,
		Name:         s.Draft.Name,
		Price:        s.Draft.Price,
		Description:  s.Draft.Description,
		PhotoRef:     s.Draft.PhotoRef,
		UploaderID:   uploaderID,
		UploaderName: s.Username,
		CommitToken:  s.Token,
		CreatedAt:    now,
	}
}
