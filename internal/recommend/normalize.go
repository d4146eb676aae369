package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"petcare-backend/internal/catalog"
)

// Non-standard whitespace characters some models sprinkle into otherwise
// valid JSON output.
var unicodeWhitespace = strings.NewReplacer(
	"\u00a0", " ",
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\u2028", "\n",
	"\u2029", "\n",
	"\ufeff", "",
)

// extractJSON locates and parses a JSON object inside raw model output.
// Three attempts: direct parse, the substring between the first '{' and the
// last '}' (tolerating surrounding prose), and a final retry after stripping
// non-standard unicode whitespace. Only total failure returns an error.
func extractJSON(raw string) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed, nil
	}

	if inner, ok := braceSubstring(raw); ok {
		if err := json.Unmarshal([]byte(inner), &parsed); err == nil {
			return parsed, nil
		}
	}

	cleaned := unicodeWhitespace.Replace(raw)
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		return parsed, nil
	}
	if inner, ok := braceSubstring(cleaned); ok {
		if err := json.Unmarshal([]byte(inner), &parsed); err == nil {
			return parsed, nil
		}
	}

	return nil, fmt.Errorf("no JSON object found in model output")
}

func braceSubstring(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// Normalize parses raw model text and produces a fully populated
// RecommendationResult. Every field of the output schema receives either
// the model's sanitized value or its documented default; only a complete
// inability to locate JSON in the text fails the operation.
func Normalize(raw string, bundle catalog.AnalysisBundle) (RecommendationResult, error) {
	parsed, err := extractJSON(raw)
	if err != nil {
		return RecommendationResult{}, fmt.Errorf("normalize: %w", err)
	}

	return RecommendationResult{
		Analysis:               normalizeAnalysis(asMap(parsed["analysis"])),
		FoodRecommendations:    normalizeFoods(asList(parsed["food_recommendations"]), bundle),
		ServiceRecommendations: normalizeServices(asList(parsed["service_recommendations"]), bundle),
	}, nil
}

func normalizeAnalysis(m map[string]any) PetAnalysis {
	return PetAnalysis{
		HealthSummary:    asString(m["health_summary"], defaultHealthSummary),
		WeightStatus:     normalizeWeightStatus(asString(m["weight_status"], "")),
		ActivityLevel:    normalizeActivityLevel(asString(m["activity_level"], "")),
		NutritionalNeeds: normalizeNutritionalNeeds(asMap(m["nutritional_needs"])),
		HealthIndices:    normalizeHealthIndices(asList(m["health_indices"])),
	}
}

func normalizeNutritionalNeeds(m map[string]any) NutritionalProfile {
	avoid := asStringSlice(m["avoid_ingredients"])
	if avoid == nil {
		// The source sometimes emits the camelCase variant.
		avoid = asStringSlice(m["avoidIngredients"])
	}
	if avoid == nil {
		avoid = []string{}
	}
	return NutritionalProfile{
		Protein:          normalizeNeedLevel(asString(m["protein"], "")),
		Fat:              normalizeNeedLevel(asString(m["fat"], "")),
		Fiber:            normalizeNeedLevel(asString(m["fiber"], "")),
		SpecialDiet:      asString(m["special_diet"], ""),
		AvoidIngredients: avoid,
	}
}

func normalizeHealthIndices(items []any) []HealthIndex {
	out := make([]HealthIndex, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		value := sanitizeScore(m["value"])
		out = append(out, HealthIndex{
			Label:  asString(m["label"], defaultIndexLabel),
			Value:  value,
			Status: normalizeIndexStatus(asString(m["status"], ""), value),
			Reason: asString(m["reason"], ""),
			Icon:   asString(m["icon"], defaultIndexIcon),
		})
	}
	return out
}

func normalizeFoods(items []any, bundle catalog.AnalysisBundle) []FoodRecommendation {
	out := make([]FoodRecommendation, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		rec := FoodRecommendation{
			// The model-referenced ID passes through verbatim, even when it
			// does not resolve against the supplied catalog.
			ProductID:    asString(m["product_id"], ""),
			ProductName:  asString(m["product_name"], ""),
			ProductImage: asString(m["product_image"], ""),
			MatchPoint:   sanitizeScore(m["match_point"]),
			MatchMetrics: normalizeMatchMetrics(asMap(m["match_metrics"])),
			Reasoning:    asString(m["reasoning"], ""),
			Price:        asFloat(m["price"], 0),
		}
		if sale, ok := asFloatOK(m["sale_price"]); ok {
			rec.SalePrice = &sale
		}
		if product, ok := bundle.ProductByID(rec.ProductID); ok {
			rec.ProductName = product.Name
			if product.Image != "" {
				rec.ProductImage = product.Image
			}
			rec.Price = product.Price
			rec.SalePrice = product.SalePrice
		}
		out = append(out, rec)
	}
	return out
}

func normalizeServices(items []any, bundle catalog.AnalysisBundle) []ServiceRecommendation {
	out := make([]ServiceRecommendation, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		priceRange := asMap(m["price_range"])
		rec := ServiceRecommendation{
			ServiceID:     asString(m["service_id"], ""),
			ServiceName:   asString(m["service_name"], ""),
			ServiceImage:  asString(m["service_image"], ""),
			MatchPoint:    sanitizeScore(m["match_point"]),
			Urgency:       normalizeUrgency(asString(m["urgency"], "")),
			UrgencyReason: asString(m["urgency_reason"], ""),
			Reasoning:     asString(m["reasoning"], ""),
			PriceRange: catalog.PriceRange{
				Min: asFloat(priceRange["min"], 0),
				Max: asFloat(priceRange["max"], 0),
			},
			RecommendedDate: asString(m["recommended_date"], ""),
		}
		if svc, ok := bundle.ServiceByID(rec.ServiceID); ok {
			rec.ServiceName = svc.Name
			if svc.Image != "" {
				rec.ServiceImage = svc.Image
			}
			rec.PriceRange = svc.PriceRange
		}
		out = append(out, rec)
	}
	return out
}

func normalizeMatchMetrics(m map[string]any) MatchMetrics {
	return MatchMetrics{
		SpeciesMatch:       sanitizeScore(m["species_match"]),
		LifeStageFit:       sanitizeScore(m["life_stage_fit"]),
		AllergySafety:      sanitizeScore(m["allergy_safety"]),
		HealthTagMatch:     sanitizeScore(m["health_tag_match"]),
		NutritionalBalance: sanitizeScore(m["nutritional_balance"]),
	}
}

func normalizeWeightStatus(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "UNDERWEIGHT":
		return "UNDERWEIGHT"
	case "OVERWEIGHT":
		return "OVERWEIGHT"
	case "NORMAL":
		return "NORMAL"
	default:
		return defaultWeightStatus
	}
}

func normalizeActivityLevel(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOW":
		return "LOW"
	case "HIGH":
		return "HIGH"
	case "MODERATE":
		return "MODERATE"
	default:
		return defaultActivityLevel
	}
}

func normalizeNeedLevel(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case NeedHigh:
		return NeedHigh
	case NeedLow:
		return NeedLow
	default:
		return NeedMedium
	}
}

func normalizeUrgency(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyHigh:
		return UrgencyHigh
	case UrgencyCritical:
		return UrgencyCritical
	default:
		return UrgencyMedium
	}
}

func normalizeIndexStatus(raw string, value int) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return "low"
	case "medium":
		return "medium"
	case "high":
		return "high"
	}
	switch {
	case value >= 70:
		return "high"
	case value >= 40:
		return "medium"
	default:
		return "low"
	}
}

func asMap(value any) map[string]any {
	m, _ := value.(map[string]any)
	return m
}

func asList(value any) []any {
	list, _ := value.([]any)
	return list
}

func asString(value any, def string) string {
	if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

func asStringSlice(value any) []string {
	switch raw := value.(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asFloat(value any, def float64) float64 {
	f, ok := asFloatOK(value)
	if !ok {
		return def
	}
	return f
}

func asFloatOK(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}
