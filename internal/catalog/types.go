package catalog

import "time"

// PetProfile describes a single pet as supplied by the caller.
type PetProfile struct {
	Name       string   `json:"name"`
	Species    string   `json:"species"`
	Breed      string   `json:"breed,omitempty"`
	AgeMonths  int      `json:"age_months"`
	WeightKg   *float64 `json:"weight_kg,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	Sterilized bool     `json:"sterilized"`
	Allergies  []string `json:"allergies,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// MedicalRecordSummary is read-only historical context for a pet.
type MedicalRecordSummary struct {
	RecordType string    `json:"record_type"`
	Diagnosis  string    `json:"diagnosis"`
	Treatment  string    `json:"treatment,omitempty"`
	Vaccines   []string  `json:"vaccines,omitempty"`
	VisitDate  time.Time `json:"visit_date"`
}

// NutritionFacts is the nutritional breakdown of a product.
type NutritionFacts struct {
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Moisture float64 `json:"moisture"`
	Calories float64 `json:"calories"`
}

// ProductSpecifications carries the targeting metadata of a catalog product.
type ProductSpecifications struct {
	TargetSpecies        string          `json:"targetSpecies,omitempty"`
	LifeStage            string          `json:"lifeStage,omitempty"`
	BreedSize            string          `json:"breedSize,omitempty"`
	HealthTags           []string        `json:"healthTags,omitempty"`
	Nutrition            *NutritionFacts `json:"nutrition,omitempty"`
	Ingredients          []string        `json:"ingredients,omitempty"`
	ForSterilized        bool            `json:"forSterilized,omitempty"`
	Texture              string          `json:"texture,omitempty"`
	PrimaryProteinSource string          `json:"primaryProteinSource,omitempty"`
}

// CatalogProduct is a read-only product lookup record.
type CatalogProduct struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Category       string                 `json:"category,omitempty"`
	Price          float64                `json:"price"`
	SalePrice      *float64               `json:"sale_price,omitempty"`
	Image          string                 `json:"image,omitempty"`
	Specifications *ProductSpecifications `json:"specifications,omitempty"`
}

// PriceRange is a min/max price band for a service.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CatalogService is a read-only service lookup record.
type CatalogService struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category,omitempty"`
	PriceRange PriceRange `json:"price_range"`
	Image      string     `json:"image,omitempty"`
}

// AnalysisBundle is the input aggregate for one recommendation request.
// It is constructed fresh per request and never persisted by the pipeline.
type AnalysisBundle struct {
	Pet            PetProfile             `json:"pet"`
	MedicalRecords []MedicalRecordSummary `json:"medicalRecords,omitempty"`
	Products       []CatalogProduct       `json:"products,omitempty"`
	Services       []CatalogService       `json:"services,omitempty"`
}

// ProductByID returns the bundle product with the given ID, if present.
func (b AnalysisBundle) ProductByID(id string) (CatalogProduct, bool) {
	for _, p := range b.Products {
		if p.ID == id {
			return p, true
		}
	}
	return CatalogProduct{}, false
}

// ServiceByID returns the bundle service with the given ID, if present.
func (b AnalysisBundle) ServiceByID(id string) (CatalogService, bool) {
	for _, s := range b.Services {
		if s.ID == id {
			return s, true
		}
	}
	return CatalogService{}, false
}
