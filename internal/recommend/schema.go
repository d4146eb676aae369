package recommend

import "petcare-backend/internal/catalog"

// RecommendationResult is the single output schema shared by the model
// path and the rule-based fallback path. Every field is always populated:
// callers never receive a partial or null-laden object, regardless of what
// the upstream model returned.
type RecommendationResult struct {
	Analysis               PetAnalysis             `json:"analysis"`
	FoodRecommendations    []FoodRecommendation    `json:"food_recommendations"`
	ServiceRecommendations []ServiceRecommendation `json:"service_recommendations"`
}

// PetAnalysis summarizes the pet's condition.
type PetAnalysis struct {
	HealthSummary    string             `json:"health_summary"`
	WeightStatus     string             `json:"weight_status"`
	ActivityLevel    string             `json:"activity_level"`
	NutritionalNeeds NutritionalProfile `json:"nutritional_needs"`
	HealthIndices    []HealthIndex      `json:"health_indices"`
}

// HealthIndex is a single 0-100 scored dimension of pet wellbeing.
type HealthIndex struct {
	Label  string `json:"label"`
	Value  int    `json:"value"`
	Status string `json:"status"`
	Reason string `json:"reason"`
	Icon   string `json:"icon"`
}

// NutritionalProfile describes macro need levels and exclusions.
type NutritionalProfile struct {
	Protein          string   `json:"protein"`
	Fat              string   `json:"fat"`
	Fiber            string   `json:"fiber"`
	SpecialDiet      string   `json:"special_diet,omitempty"`
	AvoidIngredients []string `json:"avoid_ingredients"`
}

// MatchMetrics carries the five named sub-scores of a food match.
type MatchMetrics struct {
	SpeciesMatch       int `json:"species_match"`
	LifeStageFit       int `json:"life_stage_fit"`
	AllergySafety      int `json:"allergy_safety"`
	HealthTagMatch     int `json:"health_tag_match"`
	NutritionalBalance int `json:"nutritional_balance"`
}

// FoodRecommendation scores one catalog product against the pet profile.
type FoodRecommendation struct {
	ProductID    string       `json:"product_id"`
	ProductName  string       `json:"product_name"`
	ProductImage string       `json:"product_image,omitempty"`
	MatchPoint   int          `json:"match_point"`
	MatchMetrics MatchMetrics `json:"match_metrics"`
	Reasoning    string       `json:"reasoning"`
	Price        float64      `json:"price"`
	SalePrice    *float64     `json:"sale_price,omitempty"`
}

// ServiceRecommendation scores one catalog service against the pet profile.
type ServiceRecommendation struct {
	ServiceID       string             `json:"service_id"`
	ServiceName     string             `json:"service_name"`
	ServiceImage    string             `json:"service_image,omitempty"`
	MatchPoint      int                `json:"match_point"`
	Urgency         string             `json:"urgency"`
	UrgencyReason   string             `json:"urgency_reason"`
	Reasoning       string             `json:"reasoning"`
	PriceRange      catalog.PriceRange `json:"price_range"`
	RecommendedDate string             `json:"recommended_date,omitempty"`
}

// Urgency tags for service recommendations.
const (
	UrgencyLow      = "LOW"
	UrgencyMedium   = "MEDIUM"
	UrgencyHigh     = "HIGH"
	UrgencyCritical = "CRITICAL"
)

// Need levels for the nutritional profile.
const (
	NeedHigh   = "HIGH"
	NeedMedium = "MEDIUM"
	NeedLow    = "LOW"
)

// Documented defaults applied by the normalizer when the model omitted or
// corrupted a field.
const (
	defaultHealthSummary = "Không thể phân tích"
	defaultWeightStatus  = "NORMAL"
	defaultActivityLevel = "MODERATE"
	defaultIndexLabel    = "Chỉ số sức khỏe"
	defaultIndexIcon     = "activity"
)
