package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorePhraseMatch(t *testing.T) {
	kws := []string{"Facilities Management", "IFM"}
	assert.Equal(t, 1.0, Score("Provision of Facilities Management Services for HQ", kws))
	assert.Equal(t, 1.0, Score("IFM contract (3 years)", kws))
}

func TestScoreFuzzy(t *testing.T) {
	kws := []string{"Facilities Management"}

	near := Score("Facility Managment Services", kws)
	far := Score("Supply of Laboratory Glassware", kws)

	assert.Greater(t, near, 0.85)
	assert.Less(t, near, 1.0)
	assert.Less(t, far, near)
	assert.Zero(t, Score("", kws))
	assert.Zero(t, Score("anything", nil))
}

func TestKeywordClassify(t *testing.T) {
	k := NewKeyword(0.85)
	ctx := context.Background()

	rel, err := k.Classify(ctx, "Integrated Facilities Management for Campus", []string{"Integrated Facilities Management"})
	require.NoError(t, err)
	assert.True(t, rel.Relevant)
	assert.Equal(t, 1.0, rel.Confidence)

	rel, err = k.Classify(ctx, "Supply of Laboratory Glassware", []string{"Managing Agent"})
	require.NoError(t, err)
	assert.False(t, rel.Relevant)
	assert.Greater(t, rel.Confidence, 0.0)
	assert.LessOrEqual(t, rel.Confidence, 1.0)
}
