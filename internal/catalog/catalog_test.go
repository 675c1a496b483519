package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReviews_Deterministic(t *testing.T) {
	a := GenerateReviews("tpl-resume-minimal", 6)
	b := GenerateReviews("tpl-resume-minimal", 6)
	require.Len(t, a, 6)
	assert.Equal(t, a, b)

	other := GenerateReviews("tpl-brand-kit", 6)
	assert.NotEqual(t, a, other)
}

func TestGenerateReviews_Bounds(t *testing.T) {
	for _, r := range GenerateReviews("tpl-ui-dashboard", 50) {
		assert.GreaterOrEqual(t, r.Rating, 1)
		assert.LessOrEqual(t, r.Rating, 5)
		assert.Len(t, r.Date, len("2006-01-02"))
		assert.NotEmpty(t, r.Comment)
	}
	assert.Nil(t, GenerateReviews("x", 0))
}

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 4.5, AverageRating([]Review{{Rating: 5}, {Rating: 4}}))
	assert.Equal(t, 4.3, AverageRating([]Review{{Rating: 5}, {Rating: 4}, {Rating: 4}}))
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	all := c.All()
	require.NotEmpty(t, all)

	ids := map[string]bool{}
	for _, p := range all {
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
		assert.Greater(t, p.Price, 0.0)
		assert.Equal(t, len(p.Reviews), p.ReviewCount)
	}

	p, ok := c.Get("tpl-resume-minimal")
	require.True(t, ok)
	assert.Equal(t, 299.0, p.Price)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	for _, f := range c.Featured() {
		assert.True(t, f.Featured)
	}
	for _, pr := range c.ByCategory("Print") {
		assert.Equal(t, "Print", pr.Category)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].Name = "mutated"

	p, _ := c.Get(all[0].ID)
	assert.NotEqual(t, "mutated", p.Name)
}
