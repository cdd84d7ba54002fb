package terminology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameSimilarity(t *testing.T) {
	t.Run("Identical terms", func(t *testing.T) {
		assert.Equal(t, 1.0, NameSimilarity("metformin", "metformin"))
	})

	t.Run("Term contained in concept name", func(t *testing.T) {
		assert.Equal(t, 0.9, NameSimilarity("metformin", "metformin hydrochloride"))
	})

	t.Run("Concept name contained in term", func(t *testing.T) {
		assert.Equal(t, 0.9, NameSimilarity("type 2 diabetes", "diabetes"))
	})

	t.Run("Partial word overlap", func(t *testing.T) {
		// One shared word out of three distinct words.
		got := NameSimilarity("chest pain", "pain disorder")
		assert.InDelta(t, 0.7+(1.0/3.0)*0.2, got, 1e-9)
	})

	t.Run("No overlap", func(t *testing.T) {
		assert.Equal(t, 0.6, NameSimilarity("headache", "insulin"))
	})
}
