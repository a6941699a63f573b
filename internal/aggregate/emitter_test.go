package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Koolhand111/eva-finance/internal/domain"
)

func TestGrowthRatio(t *testing.T) {
	assert.Equal(t, 0.0, growthRatio(0, 0))
	assert.Equal(t, 1.0, growthRatio(5, 0))
	assert.InDelta(t, 1.0, growthRatio(10, 5), 1e-9)
	assert.InDelta(t, -0.5, growthRatio(5, 10), 1e-9)
}

func TestClamp01Growth(t *testing.T) {
	assert.InDelta(t, 0.5, clamp01Growth(0), 1e-9)
	assert.Equal(t, 1.0, clamp01Growth(4))
	assert.Equal(t, 0.0, clamp01Growth(-4))
	assert.InDelta(t, 0.75, clamp01Growth(1.0), 1e-9)
}

func TestAbsFloat(t *testing.T) {
	assert.Equal(t, 3.0, absFloat(-3))
	assert.Equal(t, 3.0, absFloat(3))
	assert.Equal(t, 0.0, absFloat(0))
}

func TestSumByTag(t *testing.T) {
	rows := []domain.DailyBrandTag{
		{Brand: "Acme", Tag: "sneaker-drop", MessageCount: 3},
		{Brand: "Beta", Tag: "sneaker-drop", MessageCount: 4},
		{Brand: "Acme", Tag: "other-tag", MessageCount: 2},
	}

	out := sumByTag(rows)
	assert.Equal(t, 7, out["sneaker-drop"])
	assert.Equal(t, 2, out["other-tag"])
}

func TestDistinctTags(t *testing.T) {
	rows := []domain.DailyBrandTag{
		{Brand: "Acme", Tag: "sneaker-drop"},
		{Brand: "Beta", Tag: "sneaker-drop"},
		{Brand: "Acme", Tag: "other-tag"},
	}

	out := distinctTags(rows)
	assert.Equal(t, []string{"sneaker-drop", "other-tag"}, out)
}
