package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmicianjur/pelantikan-api/internal/importer"
	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/pricing"
)

func completeDraft() *Draft {
	plot := uint64(7)
	d := New("d-1")
	d.SchoolName = "SMA 1 Cianjur"
	d.Supervisor = "Pak Joko"
	d.WhatsApp = "081234567890"
	d.Category = model.CategoryWira
	d.Roster = importer.Roster{
		Participants: []importer.ParticipantEntry{
			{FullName: "Budi Santoso", PhotoRef: "pending/1-budi.jpg", PhotoStatus: importer.PhotoMatched},
			{FullName: "Siti Aminah", PhotoRef: "pending/2-siti.jpg", PhotoStatus: importer.PhotoMatched},
			{FullName: "Andi Wijaya", PhotoRef: "pending/3-andi.jpg", PhotoStatus: importer.PhotoMatched},
		},
		Chaperones: []importer.ChaperoneEntry{{FullName: "Bu Rina"}},
	}
	d.TentOption = pricing.TentCommittee
	d.TentCapacity = 20
	d.PlotID = &plot
	return d
}

func TestNewDefaults(t *testing.T) {
	d := New("d-1")
	assert.Equal(t, StepSchoolInfo, d.Step)
	assert.Equal(t, model.CategoryMadya, d.Category)
}

func TestAdvanceSchoolInfoGuard(t *testing.T) {
	d := New("d-1")
	err := d.Advance(pricing.Default)

	var guard *GuardError
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, StepSchoolInfo, d.Step, "a failed guard must not move the step")

	d.SchoolName = "SMA 1 Cianjur"
	d.Supervisor = "Pak Joko"
	d.WhatsApp = "0812"
	require.NoError(t, d.Advance(pricing.Default))
	assert.Equal(t, StepParticipantData, d.Step)
}

func TestAdvanceParticipantGuardReportsShortfall(t *testing.T) {
	d := completeDraft()
	d.Step = StepParticipantData
	d.Roster.Participants[1].PhotoStatus = importer.AwaitingPhoto
	d.Roster.Participants[2].PhotoStatus = importer.AwaitingPhoto

	err := d.Advance(pricing.Default)
	var guard *GuardError
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, "2 participant photo(s) still unmatched", guard.Msg)
	assert.Equal(t, StepParticipantData, d.Step)
}

func TestAdvanceParticipantGuardEmptyRoster(t *testing.T) {
	d := completeDraft()
	d.Step = StepParticipantData
	d.Roster = importer.Roster{}

	var guard *GuardError
	require.ErrorAs(t, d.Advance(pricing.Default), &guard)
}

func TestAdvanceTentAndLandGuard(t *testing.T) {
	d := completeDraft()
	d.Step = StepTentAndLand

	d.TentCapacity = 17 // not a committee tier
	var guard *GuardError
	require.ErrorAs(t, d.Advance(pricing.Default), &guard)

	d.TentCapacity = 20
	d.PlotID = nil
	require.ErrorAs(t, d.Advance(pricing.Default), &guard)

	plot := uint64(7)
	d.PlotID = &plot
	require.NoError(t, d.Advance(pricing.Default))
	assert.Equal(t, StepConfirmation, d.Step)
}

func TestAdvanceOwnTentSkipsPriceTable(t *testing.T) {
	d := completeDraft()
	d.Step = StepTentAndLand
	d.TentOption = pricing.TentOwn
	d.TentCapacity = 17 // any positive capacity is fine without a rental
	require.NoError(t, d.Advance(pricing.Default))
}

func TestBack(t *testing.T) {
	d := New("d-1")
	var guard *GuardError
	require.ErrorAs(t, d.Back(), &guard)

	d.Step = StepTentAndLand
	require.NoError(t, d.Back())
	assert.Equal(t, StepParticipantData, d.Step)
}

func TestSubmitAssemblesPayload(t *testing.T) {
	d := completeDraft()
	d.Step = StepConfirmation

	sub, err := d.Submit(pricing.Default)
	require.NoError(t, err)

	assert.Equal(t, "SMA 1 Cianjur", sub.SchoolName)
	assert.Equal(t, model.CategoryWira, sub.Category)
	require.Len(t, sub.Participants, 3)
	assert.Equal(t, "pending/1-budi.jpg", sub.Participants[0].PhotoRef)
	assert.Equal(t, []string{"Bu Rina"}, sub.Chaperones)
	require.NotNil(t, sub.PlotID)
	assert.Equal(t, uint64(7), *sub.PlotID)

	// 3 participants + 1 chaperone + a 20-person committee tent.
	assert.Equal(t, int64(400000), sub.TentFee)
	assert.Equal(t, int64(530000), sub.TotalFee)
}

func TestSubmitRequiresConfirmationStep(t *testing.T) {
	d := completeDraft()
	var guard *GuardError
	_, err := d.Submit(pricing.Default)
	require.ErrorAs(t, err, &guard)
}

func TestSubmitReRunsEarlierGuards(t *testing.T) {
	d := completeDraft()
	d.Step = StepConfirmation
	d.Roster.Participants[0].PhotoStatus = importer.AwaitingPhoto

	var guard *GuardError
	_, err := d.Submit(pricing.Default)
	require.ErrorAs(t, err, &guard)
	assert.Equal(t, StepConfirmation, d.Step, "the probe must not mutate the draft")
}
