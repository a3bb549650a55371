package multiplex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAveragineEnvelope(t *testing.T) {
	env := averagineEnvelope(1000, 5)
	require.Len(t, env, 5)

	assert.Equal(t, 1.0, env[0])
	// around 1 kDa roughly half the monoisotopic abundance sits in the
	// first isotope, and the envelope falls off after it
	assert.Greater(t, env[1], 0.3)
	assert.Less(t, env[1], 0.8)
	assert.Greater(t, env[1], env[2])
	assert.Greater(t, env[2], env[3])
}

func TestAveragineEnvelopeGrowsWithMass(t *testing.T) {
	small := averagineEnvelope(500, 3)
	large := averagineEnvelope(3000, 3)
	assert.Greater(t, large[1], small[1])
}
