// Package sop implements the SOP document lifecycle:
// private -> submitted -> approved|rejected. Transitions are monotonic;
// approved and rejected are terminal.
package sop

import (
	"errors"
	"sort"
	"time"

	"growbase/internal/model"
	"growbase/internal/store"
)

// ErrInvalidTransition marks a transition attempt from a status that does not
// allow it, e.g. submitting an already-submitted document. Distinct from
// store.ErrNotFound so the boundary can answer 409 vs 404.
var ErrInvalidTransition = errors.New("invalid status transition")

type Service struct {
	store *store.Store[*model.Sop]
}

func New(st *store.Store[*model.Sop]) *Service {
	return &Service{store: st}
}

// Create validates and stores a new document. New documents always start
// private regardless of what the caller sends.
func (s *Service) Create(owner, name, stage, notes string) (*model.Sop, error) {
	doc := &model.Sop{
		OwnerID: owner,
		Name:    name,
		Stage:   stage,
		Notes:   notes,
		Status:  model.SopPrivate,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return s.store.Append(doc), nil
}

// Submit moves a private document owned by owner to submitted. Ownership is
// part of the lookup key: a document owned by someone else is indistinguishable
// from an absent one and yields store.ErrNotFound.
func (s *Service) Submit(id, owner string) (*model.Sop, error) {
	return s.store.Update(
		func(d *model.Sop) bool { return d.ID == id && d.OwnerID == owner },
		func(d *model.Sop, now time.Time) error {
			if d.Status != model.SopPrivate {
				return ErrInvalidTransition
			}
			d.Status = model.SopSubmitted
			t := now
			d.SubmittedAt = &t
			d.UpdatedAt = now
			return nil
		},
	)
}

// Approve moves a submitted document to approved. Reviewer-facing: not scoped
// to an owner.
func (s *Service) Approve(id string) (*model.Sop, error) {
	return s.store.Update(
		func(d *model.Sop) bool { return d.ID == id },
		func(d *model.Sop, now time.Time) error {
			if d.Status != model.SopSubmitted {
				return ErrInvalidTransition
			}
			d.Status = model.SopApproved
			t := now
			d.ApprovedAt = &t
			d.UpdatedAt = now
			return nil
		},
	)
}

// Reject moves a submitted document to rejected.
func (s *Service) Reject(id string) (*model.Sop, error) {
	return s.store.Update(
		func(d *model.Sop) bool { return d.ID == id },
		func(d *model.Sop, now time.Time) error {
			if d.Status != model.SopSubmitted {
				return ErrInvalidTransition
			}
			d.Status = model.SopRejected
			d.UpdatedAt = now
			return nil
		},
	)
}

// ListForOwner returns owner's documents ordered by UpdatedAt descending,
// insertion order breaking ties, clamped by the store's limit contract.
func (s *Service) ListForOwner(owner string, limit int) []*model.Sop {
	docs := []*model.Sop{}
	for _, d := range s.store.Snapshot() {
		if d.OwnerID == owner {
			docs = append(docs, d)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	n := s.store.ClampLimit(limit)
	if n > len(docs) {
		n = len(docs)
	}
	return docs[:n]
}
