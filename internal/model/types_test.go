package model

import (
	"testing"

	"go.viam.com/test"
)

func sampleBatch() Batch {
	return Batch{
		Labels: []string{"a", "b", "c", "d", "e"},
		Boxes: [][4]float64{
			{0, 0, 1, 1},
			{1, 1, 2, 2},
			{2, 2, 3, 3},
			{3, 3, 4, 4},
			{4, 4, 5, 5},
		},
		Scores: []float64{0.9, 0.2, 0.6, 0.59, 0.75},
	}
}

func TestFilterKeepsAlignment(t *testing.T) {
	in := sampleBatch()
	for _, threshold := range []float64{0, 0.2, 0.6, 0.75, 0.9, 1.1} {
		out := in.Filter(threshold)
		test.That(t, out.Labels, test.ShouldHaveLength, out.Len())
		test.That(t, out.Boxes, test.ShouldHaveLength, out.Len())
		for i, score := range out.Scores {
			test.That(t, score, test.ShouldBeGreaterThanOrEqualTo, threshold)
			// label and box must still belong to the same source row
			src := int(out.Boxes[i][0])
			test.That(t, out.Labels[i], test.ShouldEqual, in.Labels[src])
			test.That(t, score, test.ShouldEqual, in.Scores[src])
		}
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	out := sampleBatch().Filter(0.6)
	test.That(t, out.Labels, test.ShouldResemble, []string{"a", "c", "e"})
	test.That(t, out.Scores, test.ShouldResemble, []float64{0.9, 0.6, 0.75})
}

func TestFilterInclusiveAndEmpty(t *testing.T) {
	out := sampleBatch().Filter(0.75)
	test.That(t, out.Labels, test.ShouldResemble, []string{"a", "e"})

	out = sampleBatch().Filter(1.1)
	test.That(t, out.Len(), test.ShouldEqual, 0)
	test.That(t, out.Predictions(), test.ShouldBeEmpty)

	out = Batch{}.Filter(0.5)
	test.That(t, out.Len(), test.ShouldEqual, 0)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := sampleBatch()
	_ = in.Filter(0.6)
	test.That(t, in, test.ShouldResemble, sampleBatch())
}

func TestPredictions(t *testing.T) {
	preds := sampleBatch().Filter(0.7).Predictions()
	test.That(t, preds, test.ShouldResemble, []Prediction{
		{Label: "a", BBox: [4]float64{0, 0, 1, 1}, Score: 0.9},
		{Label: "e", BBox: [4]float64{4, 4, 5, 5}, Score: 0.75},
	})
}
