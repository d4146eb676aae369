package recommend

import (
	"fmt"
	"sort"
	"strings"

	"petcare-backend/internal/catalog"
)

const (
	fallbackBaseScore          = 50
	fallbackLifeStageBonus     = 30
	fallbackAdultBonus         = 20
	fallbackSterilizedBonus    = 10
	fallbackFoodLimit          = 5
	fallbackServiceLimit       = 3
	fallbackServiceMatchPoint  = 70
	fallbackModerateMetric     = 70
	fallbackCheckupIndexValue  = 70
	fallbackJuvenileProteinVal = 85
	fallbackAdultProteinVal    = 65
)

// FallbackRecommendation computes a RecommendationResult with deterministic
// heuristics and zero network calls. It shares the output schema with the
// model path and is safe to call from any concurrent context: pure, total,
// and side-effect free.
func FallbackRecommendation(bundle catalog.AnalysisBundle) RecommendationResult {
	pet := bundle.Pet
	species := catalog.NormalizeSpecies(pet.Species)
	stage := catalog.LifeStageForAge(pet.AgeMonths)

	type scored struct {
		product      catalog.CatalogProduct
		score        int
		speciesExact bool
		vetoed       bool
	}

	candidates := make([]scored, 0, len(bundle.Products))
	for _, product := range bundle.Products {
		productSpecies := ""
		if product.Specifications != nil {
			productSpecies = catalog.NormalizeSpecies(product.Specifications.TargetSpecies)
		}
		// Products without a species tag are universal and kept.
		if productSpecies != "" && productSpecies != species {
			continue
		}

		score := fallbackBaseScore
		if product.Specifications != nil {
			tag := strings.ToUpper(strings.TrimSpace(product.Specifications.LifeStage))
			switch {
			case tag == stage && (stage == catalog.LifeStageJuvenile || stage == catalog.LifeStageSenior):
				score += fallbackLifeStageBonus
			case tag == catalog.LifeStageAdult || tag == catalog.LifeStageAll:
				score += fallbackAdultBonus
			}
			if pet.Sterilized && isWeightManagement(product.Specifications) {
				score += fallbackSterilizedBonus
			}
		}
		if score > 100 {
			score = 100
		}

		// Absolute exclusion, not a penalty: any allergen match zeroes the
		// product regardless of accumulated bonuses.
		vetoed := allergyVeto(pet.Allergies, product.Specifications)
		if vetoed {
			score = 0
		}

		candidates = append(candidates, scored{
			product:      product,
			score:        score,
			speciesExact: productSpecies != "" && productSpecies == species,
			vetoed:       vetoed,
		})
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if c.score > 0 {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})
	if len(kept) > fallbackFoodLimit {
		kept = kept[:fallbackFoodLimit]
	}

	foods := make([]FoodRecommendation, 0, len(kept))
	for _, c := range kept {
		speciesMatch := 50
		if c.speciesExact {
			speciesMatch = 100
		}
		lifeStageFit := 60
		if c.score >= 70 {
			lifeStageFit = 100
		}
		foods = append(foods, FoodRecommendation{
			ProductID:    c.product.ID,
			ProductName:  c.product.Name,
			ProductImage: c.product.Image,
			MatchPoint:   c.score,
			MatchMetrics: MatchMetrics{
				SpeciesMatch:       speciesMatch,
				LifeStageFit:       lifeStageFit,
				AllergySafety:      100,
				HealthTagMatch:     fallbackModerateMetric,
				NutritionalBalance: fallbackModerateMetric,
			},
			Reasoning: fmt.Sprintf("Phù hợp với %s %d tháng tuổi dựa trên loài và giai đoạn phát triển.", speciesDisplay(species), pet.AgeMonths),
			Price:     c.product.Price,
			SalePrice: c.product.SalePrice,
		})
	}

	services := make([]ServiceRecommendation, 0, fallbackServiceLimit)
	for _, svc := range bundle.Services {
		if len(services) == fallbackServiceLimit {
			break
		}
		services = append(services, ServiceRecommendation{
			ServiceID:     svc.ID,
			ServiceName:   svc.Name,
			ServiceImage:  svc.Image,
			MatchPoint:    fallbackServiceMatchPoint,
			Urgency:       UrgencyMedium,
			UrgencyReason: "Khám sức khỏe định kỳ giúp phát hiện sớm các vấn đề tiềm ẩn.",
			Reasoning:     fmt.Sprintf("Dịch vụ chăm sóc định kỳ phù hợp cho %s.", pet.Name),
			PriceRange:    svc.PriceRange,
		})
	}

	return RecommendationResult{
		Analysis:               fallbackAnalysis(pet, species),
		FoodRecommendations:    foods,
		ServiceRecommendations: services,
	}
}

func fallbackAnalysis(pet catalog.PetProfile, species string) PetAnalysis {
	juvenile := catalog.IsJuvenile(pet.AgeMonths)

	proteinLevel := NeedMedium
	proteinValue := fallbackAdultProteinVal
	proteinStatus := "medium"
	if juvenile {
		proteinLevel = NeedHigh
		proteinValue = fallbackJuvenileProteinVal
		proteinStatus = "high"
	}

	avoid := pet.Allergies
	if avoid == nil {
		avoid = []string{}
	}

	return PetAnalysis{
		HealthSummary: fmt.Sprintf("%s là %s %d tháng tuổi, được đánh giá dựa trên quy tắc chăm sóc cơ bản.",
			pet.Name, speciesDisplay(species), pet.AgeMonths),
		WeightStatus:  defaultWeightStatus,
		ActivityLevel: defaultActivityLevel,
		NutritionalNeeds: NutritionalProfile{
			Protein:          proteinLevel,
			Fat:              NeedMedium,
			Fiber:            NeedMedium,
			AvoidIngredients: avoid,
		},
		HealthIndices: []HealthIndex{
			{
				Label:  "Nhu cầu protein",
				Value:  proteinValue,
				Status: proteinStatus,
				Reason: fmt.Sprintf("%s %d tháng tuổi cần lượng protein phù hợp với giai đoạn phát triển.", speciesDisplay(species), pet.AgeMonths),
				Icon:   "protein",
			},
			{
				Label:  "Nhu cầu khám sức khỏe",
				Value:  fallbackCheckupIndexValue,
				Status: "medium",
				Reason: fmt.Sprintf("%s nên được khám sức khỏe định kỳ để theo dõi tình trạng tổng quát.", pet.Name),
				Icon:   "stethoscope",
			},
		},
	}
}

// allergyVeto reports whether any declared allergy matches an ingredient or
// the primary protein source, case-insensitively.
func allergyVeto(allergies []string, spec *catalog.ProductSpecifications) bool {
	if spec == nil || len(allergies) == 0 {
		return false
	}
	for _, allergy := range allergies {
		needle := strings.ToLower(strings.TrimSpace(allergy))
		if needle == "" {
			continue
		}
		if strings.Contains(strings.ToLower(spec.PrimaryProteinSource), needle) {
			return true
		}
		for _, ingredient := range spec.Ingredients {
			if strings.Contains(strings.ToLower(ingredient), needle) {
				return true
			}
		}
	}
	return false
}

func isWeightManagement(spec *catalog.ProductSpecifications) bool {
	if spec == nil {
		return false
	}
	if spec.ForSterilized {
		return true
	}
	for _, tag := range spec.HealthTags {
		if strings.Contains(strings.ToLower(tag), "weight") {
			return true
		}
	}
	return false
}

func speciesDisplay(species string) string {
	switch species {
	case catalog.SpeciesDog:
		return "chó"
	case catalog.SpeciesCat:
		return "mèo"
	default:
		return "thú cưng"
	}
}
