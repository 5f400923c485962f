package sentiment

// Band is one colored range of the gauge axis.
type Band struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

// Gauge describes the polarity indicator shown next to a document.
type Gauge struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Bands []Band  `json:"bands"`
	Title string  `json:"title"`
}

// NewGauge positions r on a [-1, 1] axis with red, yellow and green bands
// split at ±ToneThreshold.
func NewGauge(r Result) Gauge {
	return Gauge{
		Value: r.Polarity,
		Min:   -1,
		Max:   1,
		Bands: []Band{
			{From: -1, To: -ToneThreshold, Color: "red"},
			{From: -ToneThreshold, To: ToneThreshold, Color: "yellow"},
			{From: ToneThreshold, To: 1, Color: "green"},
		},
		Title: "Tone: " + string(r.Tone),
	}
}
