package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func TestKeywordSelectorRanksByHits(t *testing.T) {
	t.Parallel()

	headlines := []domain.Headline{
		{Title: "Football results", URL: "u1", Description: "Weekend scores"},
		{Title: "New AI model for education", URL: "u2"},
		{Title: "Chip makers", URL: "u3", Description: "AI demand lifts sales"},
		{Title: "AI tutors", URL: "u4", Description: "Education startups test AI"},
	}

	urls, err := NewKeywordSelector(0).Select(context.Background(), headlines, "AI news, especially in education", nil)
	require.NoError(t, err)

	// u2 and u4 tie at 4 and keep input order; u3 scores 1.
	assert.Equal(t, []string{"u2", "u4", "u3"}, urls)
}

func TestKeywordSelectorCapsSelection(t *testing.T) {
	t.Parallel()

	headlines := []domain.Headline{
		{Title: "Security breach at vendor", URL: "u1"},
		{Title: "Security update", URL: "u2"},
		{Title: "Security review", URL: "u3"},
	}

	urls, err := NewKeywordSelector(2).Select(context.Background(), headlines, "security", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, urls)
}

func TestKeywordSelectorWithoutTerms(t *testing.T) {
	t.Parallel()

	urls, err := NewKeywordSelector(5).Select(context.Background(), []domain.Headline{{Title: "Anything", URL: "u1"}}, "the and for", nil)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestKeywordSelectorUsesCategories(t *testing.T) {
	t.Parallel()

	urls, err := NewKeywordSelector(0).Select(context.Background(), []domain.Headline{
		{Title: "Robotics lab opens", URL: "u1"},
		{Title: "Budget talks", URL: "u2"},
	}, "", []string{"robotics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, urls)
}

func TestTerms(t *testing.T) {
	t.Parallel()

	terms := Terms("1. AI news, especially in Education and model-updates")
	assert.Contains(t, terms, "ai")
	assert.Contains(t, terms, "education")
	assert.Contains(t, terms, "updates")
	assert.NotContains(t, terms, "news")
	assert.NotContains(t, terms, "in")
}
