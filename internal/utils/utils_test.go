package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

func validParameters() *domain.RunParameters {
	return &domain.RunParameters{
		LabelCount:           4,
		HalfMax:              15,
		QuarterMax:           9,
		PairwiseMultiplier:   0.5,
		IndividualMultiplier: 0.25,
		PopulationSize:       100,
		MutationRate:         0.01,
		Islands:              4,
		Eras:                 10,
		GenerationsPerEra:    50,
	}
}

func TestValidateRunParameters(t *testing.T) {
	require.NoError(t, ValidateRunParameters(validParameters()))

	for _, mutate := range []func(p *domain.RunParameters){
		func(p *domain.RunParameters) { p.LabelCount = 3 },
		func(p *domain.RunParameters) { p.HalfMax = 0 },
		func(p *domain.RunParameters) { p.QuarterMax = 0 },
		func(p *domain.RunParameters) { p.PopulationSize = 0 },
		func(p *domain.RunParameters) { p.MutationRate = -0.1 },
		func(p *domain.RunParameters) { p.Islands = 0 },
		func(p *domain.RunParameters) { p.Eras = 0 },
		func(p *domain.RunParameters) { p.WallClockSeconds = -1 },
	} {
		p := validParameters()
		mutate(p)
		require.Error(t, ValidateRunParameters(p))
	}

	// 2 组时不需要每组的人数上限
	p := validParameters()
	p.LabelCount = 2
	p.QuarterMax = 0
	require.NoError(t, ValidateRunParameters(p))
}

func TestValidateRosterRecords(t *testing.T) {
	enrollments := []domain.Enrollment{
		{UnitID: "1", Room: "101", Period: "1"},
		{UnitID: "1", Room: "102", Period: "2"},
		{UnitID: "2", Room: "101", Period: "1"},
	}

	require.NoError(t, ValidateRosterRecords(&domain.RosterRecords{
		Enrollments:     enrollments,
		Pairings:        []domain.Pairing{{UnitID1: "1", UnitID2: "2"}},
		PreferredGroups: []domain.PreferredGroup{{UnitIDs: []string{"1", "2"}}},
	}))

	cases := []*domain.RosterRecords{
		{},
		{Enrollments: append(enrollments, domain.Enrollment{UnitID: "1", Room: "101", Period: "1"})},
		{Enrollments: append(enrollments, domain.Enrollment{UnitID: "1", Room: "103", Period: "1"})},
		{Enrollments: enrollments, Pairings: []domain.Pairing{{UnitID1: "1", UnitID2: "1"}}},
		{Enrollments: enrollments, Pairings: []domain.Pairing{{UnitID1: "1", UnitID2: "9"}}},
		{Enrollments: enrollments, PreferredGroups: []domain.PreferredGroup{{UnitIDs: []string{"1", "9"}}}},
		{Enrollments: enrollments, PreferredGroups: []domain.PreferredGroup{{UnitIDs: []string{"1"}}}},
	}
	for _, r := range cases {
		require.Error(t, ValidateRosterRecords(r))
	}
}

func TestGenerateRandomRosterRecordsIsValid(t *testing.T) {
	records := GenerateRandomRosterRecords(RandomRosterOptions{
		Students:          200,
		Rooms:             8,
		Periods:           6,
		CoursesPerStudent: 4,
		SiblingRate:       0.5,
	})

	require.Len(t, records.Enrollments, 800)
	require.NotEmpty(t, records.Pairings)
	require.NoError(t, ValidateRosterRecords(records))
}

func TestGenerateUsernameFromChineseName(t *testing.T) {
	username := GenerateUsernameFromChineseName("王伟")
	require.Regexp(t, `^w[a-z]{0,3}w[a-z]{0,2}[0-9]{1,3}$`, username)
}
