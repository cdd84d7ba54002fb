package pipeline

import (
	"log/slog"

	"github.com/clinterm/medspan/model"
)

// ConfidenceGate partitions classified entities into accept / review /
// reject tiers by absolute confidence thresholds. Rejected entities are
// dropped entirely and appear in no output bucket.
type ConfidenceGate struct {
	autoAcceptThreshold float64
	reviewThreshold     float64
	log                 *slog.Logger
}

// NewConfidenceGate creates a gate from the configured thresholds
func NewConfidenceGate(autoAccept, review float64, logger *slog.Logger) *ConfidenceGate {
	return &ConfidenceGate{
		autoAcceptThreshold: autoAccept,
		reviewThreshold:     review,
		log:                 logger,
	}
}

// Apply marks each surviving entity's review status and returns the kept
// entities in their input order. Exactly one of accepted, review or
// dropped holds per entity.
func (g *ConfidenceGate) Apply(entities []*model.MedicalEntity) []*model.MedicalEntity {
	kept := make([]*model.MedicalEntity, 0, len(entities))

	for _, entity := range entities {
		switch {
		case entity.Confidence >= g.autoAcceptThreshold:
			entity.Metadata.ReviewStatus = model.ReviewStatusAutoAccepted
			kept = append(kept, entity)
		case entity.Confidence >= g.reviewThreshold:
			entity.Metadata.ReviewStatus = model.ReviewStatusNeedsReview
			kept = append(kept, entity)
		default:
			g.log.Debug("Rejected entity below review threshold",
				slog.String("text", entity.Text),
				slog.Float64("confidence", entity.Confidence))
		}
	}

	return kept
}
