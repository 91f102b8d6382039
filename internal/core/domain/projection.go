package domain

// Point3 is a coordinate in the reduced 3D space.
type Point3 [3]float64

// PointKind distinguishes stored chunks from live queries in a plot.
type PointKind string

// Point kinds.
const (
	PointKindChunk PointKind = "chunk"
	PointKindQuery PointKind = "query"
)

// PreviewLength is the number of characters of chunk text used as a label.
const PreviewLength = 100

// ProjectionBasis is a linear map from embedding space to 3D: mean-centering
// followed by projection onto three component directions. It is derived and
// recomputable; corruption is resolved by refitting.
type ProjectionBasis struct {
	// Version identifies the corpus snapshot the basis was fit over.
	Version string

	// Dimension is the input embedding length.
	Dimension int

	// Mean is the centering vector, length Dimension.
	Mean []float64

	// Components are the three directions, each length Dimension.
	// Missing directions are all zeros.
	Components [3][]float64

	// Variance is the variance captured along each component.
	Variance [3]float64
}

// ProjectedPoint is one labelled point in a visualization.
type ProjectedPoint struct {
	ID         string
	Kind       PointKind
	DocumentID string
	Group      string
	Label      string
	Point      Point3
}

// Visualization is the set of points produced for one session request.
type Visualization struct {
	SessionID string
	Version   string
	Points    []ProjectedPoint
	Variance  [3]float64
}

// PreviewLabel truncates text to PreviewLength characters, appending "..."
// when truncated.
func PreviewLabel(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}
