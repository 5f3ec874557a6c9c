package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		near bool
	}{
		{"identical", "Take AP Calculus", "Take AP Calculus", true},
		{"punctuation and case ignored", "take ap calculus!", "Take AP Calculus", true},
		{"small suffix change", "Apply to State University this fall", "Apply to State University this fall.", true},
		{"different recommendation", "Take AP Calculus", "Join the debate team", false},
		{"partial overlap below threshold", "Visit the campus in spring", "Visit your counselor today", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.near, isNearDuplicate(tt.a, tt.b))
		})
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	a, b := "Register for the June SAT", "Register for the SAT in June"
	assert.Equal(t, similarity(a, b), similarity(b, a))
}
