package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeValidate(t *testing.T) {
	assert.NoError(t, (&Intake{Plant: "Tomato"}).Validate())

	err := (&Intake{}).Validate()
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "plant", verr.Field)
}

func TestChatValidate(t *testing.T) {
	assert.NoError(t, (&Chat{Message: "why are my leaves yellow"}).Validate())
	assert.Error(t, (&Chat{}).Validate())
	assert.Error(t, (&Chat{Message: strings.Repeat("x", 2001)}).Validate())
	assert.NoError(t, (&Chat{Message: strings.Repeat("x", 2000)}).Validate())
}

func TestSopValidate(t *testing.T) {
	valid := func() *Sop {
		return &Sop{OwnerID: "u1", Name: "Veg feed", Stage: "veg", Status: SopPrivate}
	}
	assert.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Sop)
		field  string
	}{
		{"missing owner", func(s *Sop) { s.OwnerID = "" }, "ownerId"},
		{"short name", func(s *Sop) { s.Name = "x" }, "name"},
		{"long name", func(s *Sop) { s.Name = strings.Repeat("n", 121) }, "name"},
		{"short stage", func(s *Sop) { s.Stage = "v" }, "stage"},
		{"long notes", func(s *Sop) { s.Notes = strings.Repeat("n", 4001) }, "notes"},
		{"bad status", func(s *Sop) { s.Status = "published" }, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			verr, ok := err.(*ValidationError)
			require.True(t, ok)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestEntitlementValidate(t *testing.T) {
	assert.NoError(t, (&Entitlement{UserID: "u", ProductID: "p", TransactionID: "t"}).Validate())
	assert.Error(t, (&Entitlement{ProductID: "p", TransactionID: "t"}).Validate())
	assert.Error(t, (&Entitlement{UserID: "u", TransactionID: "t"}).Validate())
	assert.Error(t, (&Entitlement{UserID: "u", ProductID: "p"}).Validate())
}

func TestRoyaltyEntryValidate(t *testing.T) {
	valid := func() *RoyaltyEntry {
		return &RoyaltyEntry{ProductID: "p", CreatorID: "c", TransactionID: "t", NetRevenue: 1000, RoyaltyPercent: 30, RoyaltyAmount: 300}
	}
	assert.NoError(t, valid().Validate())

	e := valid()
	e.NetRevenue = -1
	assert.Error(t, e.Validate())

	e = valid()
	e.RoyaltyPercent = 101
	assert.Error(t, e.Validate())

	e = valid()
	e.RoyaltyAmount = -1
	assert.Error(t, e.Validate())
}

func TestStamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s := &Sop{}
	s.Stamp("id-1", now)
	assert.Equal(t, "id-1", s.ID)
	assert.True(t, s.CreatedAt.Equal(now))
	assert.True(t, s.UpdatedAt.Equal(now))

	// Stamp never overwrites already-set fields.
	s.Stamp("id-2", now.Add(time.Hour))
	assert.Equal(t, "id-1", s.ID)
	assert.True(t, s.UpdatedAt.Equal(now))
}
