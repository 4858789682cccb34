package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelevanceScoreMonotonicAndSaturating(t *testing.T) {
	assert.Less(t, RelevanceScore(1), RelevanceScore(4))
	assert.Less(t, RelevanceScore(4), RelevanceScore(5))
	assert.Equal(t, 1.0, RelevanceScore(5))
	assert.Equal(t, 1.0, RelevanceScore(10))
	assert.InDelta(t, 0.2, RelevanceScore(1), 1e-9)
	assert.InDelta(t, 0.4, RelevanceScore(2), 1e-9)
	assert.Equal(t, 0.0, RelevanceScore(0))
	assert.Equal(t, 0.0, RelevanceScore(-3))
}

func TestScorerCustomSaturation(t *testing.T) {
	s := NewScorer(10)
	assert.InDelta(t, 0.5, s.Score(5), 1e-9)
	assert.Equal(t, 1.0, s.Score(12))

	// 非法饱和值回落到默认
	assert.Equal(t, DefaultSaturation, NewScorer(0).Saturation)
	assert.Equal(t, 1.0, Scorer{}.Score(5))
}
