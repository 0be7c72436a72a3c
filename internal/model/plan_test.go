package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimitsForKnownPlans(t *testing.T) {
	require.Equal(t, 3, LimitsFor(PlanFree).MaxReminders)
	require.Equal(t, 5, LimitsFor(PlanPlus).MaxReminders)
	require.Equal(t, 7, LimitsFor(PlanPro).MaxReminders)
}

func TestLimitsForUnknownPlanFallsBackToFree(t *testing.T) {
	limits := LimitsFor(Plan("enterprise"))
	require.Equal(t, 3, limits.MaxReminders)
	require.Equal(t, []int{30}, limits.IntervalDays)
}

func TestAllowsInterval(t *testing.T) {
	require.True(t, LimitsFor(PlanFree).AllowsInterval(30))
	require.False(t, LimitsFor(PlanFree).AllowsInterval(60))
	require.True(t, LimitsFor(PlanPro).AllowsInterval(90))
	require.False(t, LimitsFor(PlanPro).AllowsInterval(45))
}
