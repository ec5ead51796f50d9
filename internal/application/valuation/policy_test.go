package valuation

import (
	"testing"

	"handover-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_ScrapOnlyForVehicles(t *testing.T) {
	assert.True(t, PolicyFor(domain.CategoryVehicles).AllowsCondition(domain.ConditionScrap))
	assert.False(t, PolicyFor(domain.CategoryFurniture).AllowsCondition(domain.ConditionScrap))
	assert.False(t, PolicyFor(domain.CategoryAntique).AllowsCondition(domain.ConditionScrap))
	assert.True(t, PolicyFor(domain.CategoryBooks).AllowsCondition(domain.ConditionUsed))
	assert.False(t, PolicyFor(domain.CategoryBooks).AllowsCondition("broken"))
}

func TestPolicy_CeilingExceptions(t *testing.T) {
	assert.True(t, PolicyFor(domain.CategoryFurniture).CeilingApplies(domain.ConditionUsed))
	assert.True(t, PolicyFor(domain.CategoryVehicles).CeilingApplies(domain.ConditionUsed))
	assert.False(t, PolicyFor(domain.CategoryVehicles).CeilingApplies(domain.ConditionScrap))
	assert.False(t, PolicyFor(domain.CategoryAntique).CeilingApplies(domain.ConditionNew))
}

func TestPolicy_AntiqueMinimumAge(t *testing.T) {
	assert.Equal(t, 20, PolicyFor(domain.CategoryAntique).MinAgeYears)
	assert.Equal(t, 0, PolicyFor(domain.CategoryBooks).MinAgeYears)
}
