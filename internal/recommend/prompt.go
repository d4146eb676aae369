package recommend

import (
	"fmt"
	"sort"
	"strings"

	"petcare-backend/internal/catalog"
)

// Most recent medical records serialized into the user prompt.
const promptMedicalRecordLimit = 5

const systemPrompt = `You are a veterinary nutrition and care assistant for a Vietnamese pet-care platform.
Respond with JSON only. No markdown, no prose outside the JSON object. Never omit keys.

Output must match this schema exactly:
{
  "analysis": {
    "health_summary": "string (Vietnamese)",
    "weight_status": "UNDERWEIGHT | NORMAL | OVERWEIGHT",
    "activity_level": "LOW | MODERATE | HIGH",
    "nutritional_needs": {
      "protein": "HIGH | MEDIUM | LOW",
      "fat": "HIGH | MEDIUM | LOW",
      "fiber": "HIGH | MEDIUM | LOW",
      "special_diet": "string or empty",
      "avoid_ingredients": ["string"]
    },
    "health_indices": [
      {"label": "string (Vietnamese)", "value": 0, "status": "low | medium | high", "reason": "string (Vietnamese)", "icon": "string"}
    ]
  },
  "food_recommendations": [
    {"product_id": "string", "product_name": "string", "match_point": 0,
     "match_metrics": {"species_match": 0, "life_stage_fit": 0, "allergy_safety": 0, "health_tag_match": 0, "nutritional_balance": 0},
     "reasoning": "string (Vietnamese)", "price": 0}
  ],
  "service_recommendations": [
    {"service_id": "string", "service_name": "string", "match_point": 0,
     "urgency": "LOW | MEDIUM | HIGH | CRITICAL", "urgency_reason": "string (Vietnamese)",
     "reasoning": "string (Vietnamese)", "price_range": {"min": 0, "max": 0}}
  ]
}

Business rules you must follow:
1. Every score field is a single integer between 0 and 100. Never a range, never free text.
2. If a product contains an ingredient the pet is allergic to, its match_point must be 0.
3. Species must match exactly: never recommend dog products for cats or cat products for dogs.
4. Pets younger than 12 months prefer puppy/kitten formulated products; pets older than 84 months prefer senior formulated products.
5. Sterilized pets should be biased toward weight-management products.
6. If the pet is older than 12 months and has no vaccination history, the checkup/vaccination service urgency must be CRITICAL.
7. Produce between 4 and 8 health indices with Vietnamese labels and reasons, chosen from: Nhu cầu protein, Kiểm soát cân nặng, Da và lông, Tiêu hóa, Nhu cầu vitamin, Nhu cầu khám sức khỏe, Sức khỏe xương khớp, Nhu cầu năng lượng.
8. Only reference product_id and service_id values listed in the catalog. Never invent IDs.`

// BuildPrompts turns an analysis bundle into the system and user prompt
// blocks for the model. Pure: the same bundle always yields identical text.
func BuildPrompts(bundle catalog.AnalysisBundle) (system string, user string) {
	var b strings.Builder

	pet := bundle.Pet
	b.WriteString("PET PROFILE\n")
	fmt.Fprintf(&b, "Name: %s\n", pet.Name)
	fmt.Fprintf(&b, "Species: %s\n", pet.Species)
	if pet.Breed != "" {
		fmt.Fprintf(&b, "Breed: %s\n", pet.Breed)
	}
	fmt.Fprintf(&b, "Age: %d months\n", pet.AgeMonths)
	if pet.WeightKg != nil {
		fmt.Fprintf(&b, "Weight: %.1f kg\n", *pet.WeightKg)
	}
	if pet.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", pet.Gender)
	}
	fmt.Fprintf(&b, "Sterilized: %t\n", pet.Sterilized)
	if len(pet.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(pet.Allergies, ", "))
	} else {
		b.WriteString("Allergies: none\n")
	}
	if pet.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", pet.Notes)
	}

	b.WriteString("\nMEDICAL HISTORY\n")
	records := recentRecords(bundle.MedicalRecords, promptMedicalRecordLimit)
	if len(records) == 0 {
		b.WriteString("No records on file.\n")
	}
	for _, rec := range records {
		fmt.Fprintf(&b, "- [%s] %s: %s", rec.VisitDate.Format("2006-01-02"), rec.RecordType, rec.Diagnosis)
		if rec.Treatment != "" {
			fmt.Fprintf(&b, " | treatment: %s", rec.Treatment)
		}
		if len(rec.Vaccines) > 0 {
			fmt.Fprintf(&b, " | vaccines: %s", strings.Join(rec.Vaccines, ", "))
		}
		b.WriteString("\n")
	}

	if !hasVaccinationHistory(bundle.MedicalRecords) {
		b.WriteString("No vaccination history on file.\n")
	}

	b.WriteString("\nPRODUCT CATALOG\n")
	for _, p := range bundle.Products {
		fmt.Fprintf(&b, "- id=%s name=%q category=%s price=%.0f", p.ID, p.Name, p.Category, p.Price)
		if p.SalePrice != nil {
			fmt.Fprintf(&b, " sale_price=%.0f", *p.SalePrice)
		}
		if spec := p.Specifications; spec != nil {
			if spec.TargetSpecies != "" {
				fmt.Fprintf(&b, " species=%s", spec.TargetSpecies)
			}
			if spec.LifeStage != "" {
				fmt.Fprintf(&b, " life_stage=%s", spec.LifeStage)
			}
			if spec.BreedSize != "" {
				fmt.Fprintf(&b, " breed_size=%s", spec.BreedSize)
			}
			if len(spec.HealthTags) > 0 {
				fmt.Fprintf(&b, " health_tags=%s", strings.Join(spec.HealthTags, ","))
			}
			if len(spec.Ingredients) > 0 {
				fmt.Fprintf(&b, " ingredients=%s", strings.Join(spec.Ingredients, ","))
			}
			if spec.PrimaryProteinSource != "" {
				fmt.Fprintf(&b, " primary_protein=%s", spec.PrimaryProteinSource)
			}
			if spec.ForSterilized {
				b.WriteString(" for_sterilized=true")
			}
			if n := spec.Nutrition; n != nil {
				fmt.Fprintf(&b, " nutrition=protein:%.1f,fat:%.1f,fiber:%.1f,moisture:%.1f,calories:%.0f",
					n.Protein, n.Fat, n.Fiber, n.Moisture, n.Calories)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSERVICE CATALOG\n")
	for _, s := range bundle.Services {
		fmt.Fprintf(&b, "- id=%s name=%q category=%s price_min=%.0f price_max=%.0f\n",
			s.ID, s.Name, s.Category, s.PriceRange.Min, s.PriceRange.Max)
	}

	b.WriteString("\nRecommend the top 5 food products and top 3 services for this pet, regardless of catalog size. Use only the IDs above.")

	return systemPrompt, b.String()
}

// recentRecords returns up to limit records ordered newest-first without
// mutating the input slice.
func recentRecords(records []catalog.MedicalRecordSummary, limit int) []catalog.MedicalRecordSummary {
	if len(records) == 0 {
		return nil
	}
	sorted := make([]catalog.MedicalRecordSummary, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VisitDate.After(sorted[j].VisitDate)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// hasVaccinationHistory reports whether any record carries vaccine names.
func hasVaccinationHistory(records []catalog.MedicalRecordSummary) bool {
	for _, rec := range records {
		if len(rec.Vaccines) > 0 {
			return true
		}
	}
	return false
}
