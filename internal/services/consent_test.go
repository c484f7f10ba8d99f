package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink-server/internal/models"
)

func TestConsentRequestAndGrant(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	consent, err := svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)
	assert.Equal(t, models.ConsentPending, consent.Status)
	assert.Equal(t, clock.Now(), consent.RequestedAt)
	assert.Equal(t, "Asha Rao", consent.PatientName)

	// request fan-out reaches the patient
	notifications := notificationsFor(t, db, patient.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationConsentRequest, notifications[0].Type)
	assert.Equal(t, consent.ID, notifications[0].RelatedID)

	clock.Advance(5 * time.Minute)
	granted, err := svc.Respond(consent.ID, patient, ActionGrant)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentGranted, granted.Status)
	require.NotNil(t, granted.RespondedAt)
	assert.Equal(t, clock.Now(), *granted.RespondedAt)

	notifications = notificationsFor(t, db, hospital.ID)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationConsentGranted, notifications[0].Type)
}

func TestConsentDuplicatePendingRejected(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	_, err := svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)

	_, err = svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.ErrorIs(t, err, ErrConflict)

	// a different hospital may still ask
	other := createHospital(t, db, "Lakeside Clinic")
	_, err = svc.Request(other, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)
}

func TestConsentRequestWhileGrantedRejected(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	consent, err := svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)
	_, err = svc.Respond(consent.ID, patient, ActionGrant)
	require.NoError(t, err)

	_, err = svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.ErrorIs(t, err, ErrConflict)
}

func TestConsentDenyIsTerminal(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	consent, err := svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)

	denied, err := svc.Respond(consent.ID, patient, ActionDeny)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentDenied, denied.Status)

	// a settled request cannot be answered again
	_, err = svc.Respond(consent.ID, patient, ActionGrant)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// denial does not block a fresh request
	_, err = svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)
}

func TestConsentRevoke(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	consent, err := svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)
	_, err = svc.Respond(consent.ID, patient, ActionGrant)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.NoError(t, svc.Revoke(consent.ID, hospital))

	var stored models.Consent
	require.NoError(t, db.First(&stored, "id = ?", consent.ID).Error)
	assert.Equal(t, models.ConsentRevoked, stored.Status)
	require.NotNil(t, stored.RevokedAt)
	assert.True(t, stored.RevokedAt.Equal(clock.Now()))

	// revocation is terminal
	err = svc.Revoke(consent.ID, hospital)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// access can be requested anew after a revoke
	_, err = svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)
}

func TestConsentRevokePendingRejected(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")

	consent, err := svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)

	err = svc.Revoke(consent.ID, hospital)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConsentRespondScopedToPatient(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	patient := createPatient(t, db, "+15550000001", "Asha Rao")
	other := createPatient(t, db, "+15550000002", "Ben Okafor")

	consent, err := svc.Request(hospital, patient, "Asha Rao", "+15550000001")
	require.NoError(t, err)

	// someone else's consent is indistinguishable from a missing one
	_, err = svc.Respond(consent.ID, other, ActionGrant)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConsentListGrantedForHospital(t *testing.T) {
	db := newTestDB(t)
	clock := newFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := NewConsentService(db, clock)

	hospital := createHospital(t, db, "City General")
	first := createPatient(t, db, "+15550000001", "Asha Rao")
	second := createPatient(t, db, "+15550000002", "Ben Okafor")

	granted, err := svc.Request(hospital, first, "Asha Rao", "+15550000001")
	require.NoError(t, err)
	_, err = svc.Respond(granted.ID, first, ActionGrant)
	require.NoError(t, err)

	_, err = svc.Request(hospital, second, "Ben Okafor", "+15550000002")
	require.NoError(t, err)

	all, err := svc.ListForHospital(hospital.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListGrantedForHospital(hospital.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].PatientID)
}
