package model

import "github.com/samber/lo"

// Metadata describes the exported detector. It lives next to the model as
// model_metadata.json.
type Metadata struct {
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Prediction is one detected object. BBox is [x1, y1, x2, y2] in image pixels.
type Prediction struct {
	Label string     `json:"label"`
	BBox  [4]float64 `json:"bbox"`
	Score float64    `json:"score"`
}

// Batch holds the predictions for one image as three parallel sequences.
// Index i of Labels, Boxes and Scores describes the same object.
type Batch struct {
	Labels []string
	Boxes  [][4]float64
	Scores []float64
}

func (b Batch) Len() int {
	return len(b.Scores)
}

// Filter returns the predictions whose score is at least threshold, keeping
// their relative order.
func (b Batch) Filter(threshold float64) Batch {
	out := Batch{
		Labels: make([]string, 0, len(b.Scores)),
		Boxes:  make([][4]float64, 0, len(b.Scores)),
		Scores: make([]float64, 0, len(b.Scores)),
	}
	for i, score := range b.Scores {
		if score >= threshold {
			out.Labels = append(out.Labels, b.Labels[i])
			out.Boxes = append(out.Boxes, b.Boxes[i])
			out.Scores = append(out.Scores, score)
		}
	}
	return out
}

func (b Batch) Predictions() []Prediction {
	return lo.Map(b.Scores, func(score float64, i int) Prediction {
		return Prediction{Label: b.Labels[i], BBox: b.Boxes[i], Score: score}
	})
}

func (b *Batch) add(label string, box [4]float64, score float64) {
	b.Labels = append(b.Labels, label)
	b.Boxes = append(b.Boxes, box)
	b.Scores = append(b.Scores, score)
}
