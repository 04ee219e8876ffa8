package spend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordValidate(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		r := Record{ID: "r1", Vendor: "Dell", Description: "Laptop", Amount: 1200}
		assert.NoError(t, r.Validate())
	})

	t.Run("rejects empty ID", func(t *testing.T) {
		r := Record{Vendor: "Dell"}
		err := r.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "record ID cannot be empty")
	})

	t.Run("rejects record without text", func(t *testing.T) {
		r := Record{ID: "r1", Vendor: "  "}
		err := r.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot both be empty")
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		r := Record{ID: "r1", Vendor: "Dell", Amount: -1}
		assert.Error(t, r.Validate())
	})
}

func TestRecordSearchText(t *testing.T) {
	t.Run("absent department contributes empty segment", func(t *testing.T) {
		r := Record{Vendor: "Dell", Description: "Laptop Purchase"}
		assert.Equal(t, "dell laptop purchase ", r.SearchText())
		assert.NotContains(t, r.SearchText(), "undefined")
	})

	t.Run("includes department", func(t *testing.T) {
		r := Record{Vendor: "ACME", Description: "Chairs", Department: "Facilities"}
		assert.Equal(t, "acme chairs facilities", r.SearchText())
	})
}

func TestStatusValidate(t *testing.T) {
	for _, s := range []Status{StatusClassified, StatusNeedsReview, StatusFailed} {
		assert.NoError(t, s.Validate())
	}
	assert.Error(t, Status("bogus").Validate())
}

func TestJudgmentValidate(t *testing.T) {
	assert.NoError(t, (&Judgment{Code: "43211503", Confidence: 0.9}).Validate())
	assert.Error(t, (&Judgment{Confidence: 0.9}).Validate())
	assert.Error(t, (&Judgment{Code: "x", Confidence: 1.5}).Validate())
}
