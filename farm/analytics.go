package farm

// Dataset is one named series of a chart.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Analytics holds the sample charts of the analytics page.
type Analytics struct {
	Profit    Chart `json:"profit"`
	Yield     Chart `json:"yield"`
	Resources Chart `json:"resources"`
}

// SampleAnalytics returns a fresh copy of the static analytics charts.
func SampleAnalytics() Analytics {
	return Analytics{
		Profit: Chart{
			Labels: []string{"Wheat", "Rice", "Mustard", "Tomato", "Corn"},
			Datasets: []Dataset{
				{Label: "Revenue", Data: []float64{85000, 72000, 55000, 95000, 48000}},
				{Label: "Cost", Data: []float64{45000, 38000, 22000, 60000, 28000}},
				{Label: "Profit", Data: []float64{40000, 34000, 33000, 35000, 20000}},
			},
		},
		Yield: Chart{
			Labels: []string{"2021", "2022", "2023", "2024", "2025"},
			Datasets: []Dataset{
				{Label: "Wheat", Data: []float64{42, 45, 48, 52, 55}},
				{Label: "Rice", Data: []float64{38, 40, 36, 43, 45}},
				{Label: "Mustard", Data: []float64{18, 20, 22, 25, 28}},
			},
		},
		Resources: Chart{
			Labels: append([]string(nil), MonthLabels...),
			Datasets: []Dataset{
				{Label: "Water", Data: []float64{120, 150, 200, 180, 220, 250}},
				{Label: "Fertilizer", Data: []float64{200, 230, 310, 280, 320, 360}},
				{Label: "Pesticide", Data: []float64{240, 260, 350, 330, 370, 420}},
			},
		},
	}
}
