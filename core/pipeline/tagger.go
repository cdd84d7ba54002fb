package pipeline

import (
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/clinterm/medspan/helper"
)

// DefaultTagger creates a statistical span tagger backed by a
// token-classification model. The model is downloaded on first use.
// Any ONNX token-classification model works; a biomedical NER model
// gives the best candidate recall on clinical narratives.
func DefaultTagger(modelName string) (TaggerFunc, error) {
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewError("create hugot session", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "span-tagger",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	taggerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, helper.NewError("create tagger pipeline", destroyErr)
		}
		return nil, helper.NewError("create tagger pipeline", err)
	}

	return func(text string) ([]TaggedSpan, error) {
		result, err := taggerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, helper.NewError("run span tagger", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		var spans []TaggedSpan
		for _, entity := range result.Entities[0] {
			spans = append(spans, TaggedSpan{
				Word:  strings.TrimSpace(entity.Word),
				Start: int(entity.Start),
				End:   int(entity.End),
				Score: float64(entity.Score),
			})
		}

		return spans, nil
	}, nil
}
