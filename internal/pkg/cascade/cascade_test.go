package cascade_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gopharma/internal/pkg/cascade"
)

func TestEvaluate_FirstMatchWins(t *testing.T) {
	rules := cascade.Cascade[int, string]{
		{Name: "par", Apply: func(x int) (string, bool) { return "par", x%2 == 0 }},
		{Name: "maior que dez", Apply: func(x int) (string, bool) { return "grande", x > 10 }},
	}

	out, rule, ok := rules.Evaluate(12)
	assert.True(t, ok)
	assert.Equal(t, "par", out)
	assert.Equal(t, "par", rule)

	out, rule, ok = rules.Evaluate(13)
	assert.True(t, ok)
	assert.Equal(t, "grande", out)
	assert.Equal(t, "maior que dez", rule)

	_, _, ok = rules.Evaluate(3)
	assert.False(t, ok)
}

func TestBelow_ExclusiveUpperBounds(t *testing.T) {
	levels := cascade.Below("OK",
		cascade.Threshold[string]{Limit: 30, Value: "CRITICAL"},
		cascade.Threshold[string]{Limit: 90, Value: "WARNING"},
	)

	cases := map[int64]string{-5: "CRITICAL", 29: "CRITICAL", 30: "WARNING", 89: "WARNING", 90: "OK"}
	for x, want := range cases {
		got, _, ok := levels.Evaluate(x)
		assert.True(t, ok)
		assert.Equal(t, want, got, "x=%d", x)
	}
}
