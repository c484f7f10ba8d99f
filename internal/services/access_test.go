package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessDefaultsToNone(t *testing.T) {
	db := newTestDB(t)
	resolver := NewAccessResolver(db)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	grant, err := resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.False(t, grant.Allowed())
	assert.Equal(t, AccessNone, grant.Level)
}

func TestAccessFollowsAdmissionLifecycle(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	admissions := NewAdmissionService(db, clock)
	resolver := NewAccessResolver(db)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	admission, err := admissions.Admit(hospital.ID, patient.Phone, patient.Name, "")
	require.NoError(t, err)
	assert.Equal(t, patient.ID, admission.PatientID)

	grant, err := resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, AccessViaAdmission, grant.Level)

	require.NoError(t, admissions.Discharge(hospital.ID, admission.ID))

	grant, err = resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.False(t, grant.Allowed())
}

func TestAccessFollowsConsentLifecycle(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	consents := NewConsentService(db, clock)
	resolver := NewAccessResolver(db)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	consent, err := consents.Request(hospital, patient, patient.Name, patient.Phone)
	require.NoError(t, err)

	// pending grants nothing
	grant, err := resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.False(t, grant.Allowed())

	_, err = consents.Respond(consent.ID, patient, ActionGrant)
	require.NoError(t, err)

	grant, err = resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, AccessViaConsent, grant.Level)
	require.NotNil(t, grant.Consent)
	assert.Equal(t, consent.ID, grant.Consent.ID)

	require.NoError(t, consents.Revoke(consent.ID, hospital))

	grant, err = resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.False(t, grant.Allowed())
}

func TestAccessAdmissionTakesPrecedence(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	consents := NewConsentService(db, clock)
	admissions := NewAdmissionService(db, clock)
	resolver := NewAccessResolver(db)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	consent, err := consents.Request(hospital, patient, patient.Name, patient.Phone)
	require.NoError(t, err)
	_, err = consents.Respond(consent.ID, patient, ActionGrant)
	require.NoError(t, err)

	admission, err := admissions.Admit(hospital.ID, patient.Phone, patient.Name, "")
	require.NoError(t, err)

	grant, err := resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, AccessViaAdmission, grant.Level)

	// consent still carries access once the stay ends
	require.NoError(t, admissions.Discharge(hospital.ID, admission.ID))
	grant, err = resolver.Resolve(hospital.ID, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, AccessViaConsent, grant.Level)
}

func TestAdmissionConflictAndRediscover(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	admissions := NewAdmissionService(db, clock)

	hospital := createHospital(t, db, "City General")

	first, err := admissions.Admit(hospital.ID, "+15550000009", "Walk In", "")
	require.NoError(t, err)
	assert.Empty(t, first.PatientID)

	_, err = admissions.Admit(hospital.ID, "+15550000009", "Walk In", "")
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, admissions.Discharge(hospital.ID, first.ID))
	err = admissions.Discharge(hospital.ID, first.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// re-admission opens a fresh stay
	_, err = admissions.Admit(hospital.ID, "+15550000009", "Walk In", "")
	require.NoError(t, err)
}
