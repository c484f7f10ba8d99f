package services

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var temporaryIDPattern = regexp.MustCompile(`^[0-9A-F]{10}$`)

func TestEmergencyAdmitAllocatesIdentity(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 2, 15, 0, 0, time.UTC))
	svc := NewEmergencyService(db, clock)

	hospital := createHospital(t, db, "City General")

	patient, err := svc.Admit(hospital.ID, "  ICU-4 ", "unconscious on arrival")
	require.NoError(t, err)
	assert.Equal(t, "ICU-4", patient.BedNumber)
	assert.True(t, patient.IsActive)
	assert.Regexp(t, temporaryIDPattern, patient.TemporaryID)
	assert.Equal(t, "EMG-"+patient.TemporaryID, patient.ReferencePhone())
	assert.True(t, strings.HasPrefix(patient.DisplayName(), "Emergency Patient"))
}

func TestEmergencyAdmitRequiresBed(t *testing.T) {
	db := newTestDB(t)
	svc := NewEmergencyService(db, newFakeClock(time.Now()))
	hospital := createHospital(t, db, "City General")

	_, err := svc.Admit(hospital.ID, "   ", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestEmergencyBedOccupancy(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 2, 15, 0, 0, time.UTC))
	svc := NewEmergencyService(db, clock)

	hospital := createHospital(t, db, "City General")
	other := createHospital(t, db, "Lakeside Clinic")

	first, err := svc.Admit(hospital.ID, "ER-1", "")
	require.NoError(t, err)

	// same bed, same hospital: occupied
	_, err = svc.Admit(hospital.ID, "ER-1", "")
	require.ErrorIs(t, err, ErrConflict)

	// different bed or different hospital is fine
	_, err = svc.Admit(hospital.ID, "ER-2", "")
	require.NoError(t, err)
	_, err = svc.Admit(other.ID, "ER-1", "")
	require.NoError(t, err)

	// discharge frees the bed for a new identity
	clock.Advance(3 * time.Hour)
	require.NoError(t, svc.Discharge(hospital.ID, first.ID))

	second, err := svc.Admit(hospital.ID, "ER-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.TemporaryID, second.TemporaryID)
}

func TestEmergencyDischargeIsTerminal(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 2, 15, 0, 0, time.UTC))
	svc := NewEmergencyService(db, clock)

	hospital := createHospital(t, db, "City General")

	patient, err := svc.Admit(hospital.ID, "ER-1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Discharge(hospital.ID, patient.ID))

	stored, err := svc.Get(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.DischargeDate)

	err = svc.Discharge(hospital.ID, patient.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEmergencyScopedToAdmittingHospital(t *testing.T) {
	db := newTestDB(t)
	svc := NewEmergencyService(db, newFakeClock(time.Now()))

	hospital := createHospital(t, db, "City General")
	other := createHospital(t, db, "Lakeside Clinic")

	patient, err := svc.Admit(hospital.ID, "ER-1", "")
	require.NoError(t, err)

	_, err = svc.Get(other.ID, patient.ID)
	require.ErrorIs(t, err, ErrNotFound)
	err = svc.Discharge(other.ID, patient.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEmergencyListActiveOnly(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 2, 15, 0, 0, time.UTC))
	svc := NewEmergencyService(db, clock)

	hospital := createHospital(t, db, "City General")

	first, err := svc.Admit(hospital.ID, "ER-1", "")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = svc.Admit(hospital.ID, "ER-2", "")
	require.NoError(t, err)

	require.NoError(t, svc.Discharge(hospital.ID, first.ID))

	all, err := svc.List(hospital.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(hospital.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ER-2", active[0].BedNumber)
}
