package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	s := NewSession("living room", "dev-1")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "living room", s.Name)
	assert.True(t, s.Active)
	assert.Equal(t, []string{"dev-1"}, s.Participants)
}

func TestSessionJoin_NoDuplicates(t *testing.T) {
	s := NewSession("room", "dev-1")

	require.True(t, s.Join("dev-2"))
	assert.Equal(t, []string{"dev-1", "dev-2"}, s.Participants)

	before := s.LastActiveAt
	// joining again is a membership no-op but still bumps activity
	assert.False(t, s.Join("dev-2"))
	assert.Equal(t, []string{"dev-1", "dev-2"}, s.Participants)
	assert.False(t, s.LastActiveAt.Before(before))
}

func TestSessionLeave(t *testing.T) {
	s := NewSession("room", "dev-1")
	s.Join("dev-2")
	s.Join("dev-3")

	s.Leave("dev-2")
	assert.Equal(t, []string{"dev-1", "dev-3"}, s.Participants)

	// leaving a non-member is harmless
	s.Leave("dev-x")
	assert.Equal(t, []string{"dev-1", "dev-3"}, s.Participants)
}

func TestSessionDeactivate(t *testing.T) {
	s := NewSession("room", "dev-1")
	s.Deactivate()
	assert.False(t, s.Active)
}
