// Package model defines the stored entity types and their validation rules.
// Validate is the single schema entry point per entity: the HTTP boundary and
// the snapshot loader both call it, so the on-disk shape and the accepted
// request shape can never drift apart.
package model

import (
	"fmt"
	"time"
)

// ValidationError reports a caller error on a single field. It is never a
// system fault and maps to a 400 at the HTTP boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Intake is one plant-room telemetry reading. Only the plant name is
// required; the rest arrives as free-form strings from field devices.
type Intake struct {
	ID         string    `json:"id"`
	Plant      string    `json:"plant"`
	Room       string    `json:"room"`
	TargetPPM  string    `json:"targetPpm"`
	TargetPH   string    `json:"targetPh"`
	Notes      string    `json:"notes"`
	QueuedAt   string    `json:"queuedAt"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (r *Intake) EntityID() string { return r.ID }

func (r *Intake) Clone() any { c := *r; return &c }

func (r *Intake) Stamp(id string, now time.Time) {
	if r.ID == "" {
		r.ID = id
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = now
	}
}

func (r *Intake) Validate() error {
	if r.Plant == "" {
		return invalid("plant", "required")
	}
	return nil
}

// Chat is one question/answer exchange with the rule responder.
type Chat struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Chat) EntityID() string { return r.ID }

func (r *Chat) Clone() any { c := *r; return &c }

func (r *Chat) Stamp(id string, now time.Time) {
	if r.ID == "" {
		r.ID = id
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

func (r *Chat) Validate() error {
	if len(r.Message) < 1 || len(r.Message) > 2000 {
		return invalid("message", "must be 1-2000 characters")
	}
	return nil
}

// SopStatus is the lifecycle state of a SOP document.
type SopStatus string

const (
	SopPrivate   SopStatus = "private"
	SopSubmitted SopStatus = "submitted"
	SopApproved  SopStatus = "approved"
	SopRejected  SopStatus = "rejected"
)

func validSopStatus(s SopStatus) bool {
	switch s {
	case SopPrivate, SopSubmitted, SopApproved, SopRejected:
		return true
	}
	return false
}

// Sop is a Standard Operating Procedure document owned by one user.
// Status only moves forward: private -> submitted -> approved|rejected.
type Sop struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Stage       string     `json:"stage"`
	Notes       string     `json:"notes"`
	Status      SopStatus  `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
}

func (r *Sop) EntityID() string { return r.ID }

// Clone copies the document. The copy shares SubmittedAt/ApprovedAt pointers
// with the original; lifecycle transitions assign fresh pointers rather than
// writing through them, so the shared values stay frozen.
func (r *Sop) Clone() any { c := *r; return &c }

func (r *Sop) Stamp(id string, now time.Time) {
	if r.ID == "" {
		r.ID = id
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
}

func (r *Sop) Validate() error {
	if r.OwnerID == "" {
		return invalid("ownerId", "required")
	}
	if len(r.Name) < 2 || len(r.Name) > 120 {
		return invalid("name", "must be 2-120 characters")
	}
	if len(r.Stage) < 2 || len(r.Stage) > 120 {
		return invalid("stage", "must be 2-120 characters")
	}
	if len(r.Notes) > 4000 {
		return invalid("notes", "must be at most 4000 characters")
	}
	if !validSopStatus(r.Status) {
		return invalid("status", "unknown status")
	}
	return nil
}

// Entitlement is a durable grant of one catalog product to one user. The
// (userId, productId, transactionId) triple is the idempotency key: the same
// purchase event delivered twice must resolve to the same entitlement.
type Entitlement struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ProductID     string    `json:"productId"`
	TransactionID string    `json:"transactionId"`
	Provenance    string    `json:"provenance"`
	PurchasedAt   time.Time `json:"purchasedAt"`
}

func (r *Entitlement) EntityID() string { return r.ID }

func (r *Entitlement) Clone() any { c := *r; return &c }

func (r *Entitlement) Stamp(id string, now time.Time) {
	if r.ID == "" {
		r.ID = id
	}
	if r.PurchasedAt.IsZero() {
		r.PurchasedAt = now
	}
}

func (r *Entitlement) Validate() error {
	if r.UserID == "" {
		return invalid("userId", "required")
	}
	if r.ProductID == "" {
		return invalid("productId", "required")
	}
	if r.TransactionID == "" {
		return invalid("transactionId", "required")
	}
	return nil
}

// RoyaltyEntry records revenue owed to a listing's creator from one sale.
// RoyaltyPercent is captured at sale time; later catalog edits do not touch
// posted entries. Amounts are integer minor currency units.
type RoyaltyEntry struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"productId"`
	CreatorID      string    `json:"creatorId"`
	TransactionID  string    `json:"transactionId"`
	NetRevenue     int64     `json:"netRevenue"`
	RoyaltyPercent float64   `json:"royaltyPercent"`
	RoyaltyAmount  int64     `json:"royaltyAmount"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (r *RoyaltyEntry) EntityID() string { return r.ID }

func (r *RoyaltyEntry) Clone() any { c := *r; return &c }

func (r *RoyaltyEntry) Stamp(id string, now time.Time) {
	if r.ID == "" {
		r.ID = id
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

func (r *RoyaltyEntry) Validate() error {
	if r.ProductID == "" {
		return invalid("productId", "required")
	}
	if r.CreatorID == "" {
		return invalid("creatorId", "required")
	}
	if r.TransactionID == "" {
		return invalid("transactionId", "required")
	}
	if r.NetRevenue < 0 {
		return invalid("netRevenue", "must not be negative")
	}
	if r.RoyaltyPercent < 0 || r.RoyaltyPercent > 100 {
		return invalid("royaltyPercent", "must be between 0 and 100")
	}
	if r.RoyaltyAmount < 0 {
		return invalid("royaltyAmount", "must not be negative")
	}
	return nil
}
