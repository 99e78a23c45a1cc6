package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"agri-smart/config"
	"agri-smart/logging"
)

// AdvisorCrops are the crops the advisor scores, in tie-break order.
var AdvisorCrops = []string{"Wheat", "Millet", "Sunflower", "Cotton", "Maize"}

const (
	maxSeeds    = 4
	noAdvice    = "No advice available."
	defaultCrop = "Wheat"
)

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls a Gemini model through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrAdvisorDisabled
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}

// SoilInput is a soil test in kg/ha plus the farmer's preferred crop.
type SoilInput struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
	Crop       string  `json:"crop"`
}

// UnmarshalJSON accepts each nutrient as a number or a numeric string, either
// at the top level or under soil_data with capitalised keys. A top-level key
// wins when both are present. Values that do not parse count as 0.
func (in *SoilInput) UnmarshalJSON(b []byte) error {
	var raw struct {
		Nitrogen   json.RawMessage `json:"nitrogen"`
		Phosphorus json.RawMessage `json:"phosphorus"`
		Potassium  json.RawMessage `json:"potassium"`
		Crop       any             `json:"crop"`
		SoilData   json.RawMessage `json:"soil_data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var soil map[string]json.RawMessage
	_ = json.Unmarshal(raw.SoilData, &soil)

	pick := func(top json.RawMessage, nested string) float64 {
		if len(top) > 0 {
			return toNumber(top)
		}
		return toNumber(soil[nested])
	}
	*in = SoilInput{
		Nitrogen:   pick(raw.Nitrogen, "Nitrogen"),
		Phosphorus: pick(raw.Phosphorus, "Phosphorus"),
		Potassium:  pick(raw.Potassium, "Potassium"),
		Crop:       str(raw.Crop),
	}
	return nil
}

func toNumber(raw json.RawMessage) float64 {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

type Suitability struct {
	Crop       string `json:"crop"`
	Percentage int    `json:"percentage"`
}

type Seed struct {
	Name      string `json:"name"`
	Crop      string `json:"crop"`
	Season    string `json:"season"`
	YieldType string `json:"yield_type"`
}

// Advice always has this shape, even when generation failed.
type Advice struct {
	CropSuitability  []Suitability `json:"crop_suitability"`
	RecommendedSeeds []Seed        `json:"recommended_seeds"`
	Advice           string        `json:"advice"`
}

// Advisor asks a model for crop suitability and seed advice.
type Advisor struct {
	gen     Generator
	timeout time.Duration
	log     *zap.Logger
}

// NewAdvisor returns an advisor over gen. A nil gen yields a disabled
// advisor whose Advise returns ErrAdvisorDisabled.
func NewAdvisor(gen Generator, timeout time.Duration, log *zap.Logger) *Advisor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Advisor{gen: gen, timeout: timeout, log: logging.OrNop(log).Named("advisor")}
}

// NewAdvisorFromConfig builds a Gemini-backed advisor, or a disabled one when
// no API key is configured.
func NewAdvisorFromConfig(ctx context.Context, cfg config.AdvisorConfig, log *zap.Logger) (*Advisor, error) {
	if cfg.APIKey == "" {
		return NewAdvisor(nil, cfg.Timeout, log), nil
	}
	gen, err := NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	return NewAdvisor(gen, cfg.Timeout, log), nil
}

func (a *Advisor) Enabled() bool { return a.gen != nil }

// Advise scores the five advisor crops for in. Model and parse failures are
// reported inside the returned Advice, not as an error.
func (a *Advisor) Advise(ctx context.Context, in SoilInput) (*Advice, error) {
	if a.gen == nil {
		return nil, ErrAdvisorDisabled
	}
	crop := SelectedCrop(in.Crop)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.gen.Generate(ctx, BuildPrompt(in, crop))
	if err == nil {
		var payload map[string]any
		payload, err = extractJSON(text)
		if err == nil {
			adv := NormalizeAdvice(payload, crop)
			return &adv, nil
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = ErrTimeout
	}
	a.log.Warn("advice generation failed", zap.String("crop", crop), zap.Error(err))
	return &Advice{
		CropSuitability:  []Suitability{},
		RecommendedSeeds: []Seed{},
		Advice:           "Error generating advice: " + err.Error(),
	}, nil
}

// SelectedCrop returns the advisor crop matching name, or Wheat.
func SelectedCrop(name string) string {
	name = strings.TrimSpace(name)
	for _, c := range AdvisorCrops {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return defaultCrop
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// BuildPrompt asks for strict JSON scoring the advisor crops and suggesting
// seeds of crop.
func BuildPrompt(in SoilInput, crop string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an experienced Indian agricultural scientist.\n\n")
	fmt.Fprintf(&b, "Soil data:\n- Nitrogen: %s kg/ha\n- Phosphorus: %s kg/ha\n- Potassium: %s kg/ha\n- Preferred crop: %s\n\n",
		num(in.Nitrogen), num(in.Phosphorus), num(in.Potassium), crop)
	fmt.Fprintf(&b, "Reply with one JSON object and nothing else, in this schema:\n")
	fmt.Fprintf(&b, `{"crop_suitability": [{"crop": "<one of %s>", "percentage": <0-100>}, ...],`+"\n", strings.Join(AdvisorCrops, ", "))
	fmt.Fprintf(&b, ` "recommended_seeds": [{"name": "<variety>", "crop": %q, "season": "<Kharif, Rabi or Zaid>", "yield_type": "<short trait label>"}, ...],`+"\n", crop)
	fmt.Fprintf(&b, ` "advice": "<1-3 sentences of agronomic advice>"}`+"\n\n")
	fmt.Fprintf(&b, "Rules:\n")
	fmt.Fprintf(&b, "- Base every recommendation on the N, P and K values only.\n")
	fmt.Fprintf(&b, "- crop_suitability has exactly %d items, one per crop above, sorted by percentage descending, with varied percentages.\n", len(AdvisorCrops))
	fmt.Fprintf(&b, "- recommended_seeds has 3 or %d distinct, realistic varieties of %s, each with its own season and yield_type.\n", maxSeeds, crop)
	fmt.Fprintf(&b, "- No markdown, no code fences, no explanation outside the JSON.\n")
	return b.String()
}

// extractJSON decodes the span from the first '{' to the last '}' of text.
func extractJSON(text string) (map[string]any, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, errors.New("empty model response")
	}
	i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if i < 0 || j < i {
		return nil, errors.New("no JSON object found")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw[i:j+1]), &payload); err != nil {
		return nil, fmt.Errorf("decode model JSON: %w", err)
	}
	return payload, nil
}

// NormalizeAdvice coerces a loosely typed model payload into Advice: every
// advisor crop scored 0-100 (missing ones 0) in descending order, at most
// four seeds of crop, and a non-empty advice line.
func NormalizeAdvice(payload map[string]any, crop string) Advice {
	pct := make(map[string]int)
	items, _ := payload["crop_suitability"].([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(str(m["crop"]))
		if name == "" {
			continue
		}
		for _, c := range AdvisorCrops {
			if strings.EqualFold(c, name) {
				pct[c] = clampPercent(m["percentage"])
				break
			}
		}
	}

	suit := make([]Suitability, len(AdvisorCrops))
	for i, c := range AdvisorCrops {
		suit[i] = Suitability{Crop: c, Percentage: pct[c]}
	}
	sort.SliceStable(suit, func(i, j int) bool { return suit[i].Percentage > suit[j].Percentage })

	seeds := []Seed{}
	raw, _ := payload["recommended_seeds"].([]any)
	for _, it := range raw {
		if len(seeds) == maxSeeds {
			break
		}
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(str(m["name"]))
		seedCrop := strings.TrimSpace(str(m["crop"]))
		if name == "" || !strings.EqualFold(seedCrop, crop) {
			continue
		}
		seeds = append(seeds, Seed{
			Name:      name,
			Crop:      seedCrop,
			Season:    strings.TrimSpace(str(m["season"])),
			YieldType: strings.TrimSpace(str(m["yield_type"])),
		})
	}

	advice := strings.TrimSpace(str(payload["advice"]))
	if advice == "" {
		advice = noAdvice
	}
	return Advice{CropSuitability: suit, RecommendedSeeds: seeds, Advice: advice}
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// clampPercent rounds v half to even and clamps it to 0..100. Anything that
// is not a finite number or numeric string counts as 0.
func clampPercent(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.RoundToEven(f)
	return int(math.Max(0, math.Min(100, f)))
}
