package constants

// TreatmentCategory groups canonical treatment names for prompts and exports.
type TreatmentCategory string

const (
	Diagnostics         TreatmentCategory = "Diagnostics"
	Surgery             TreatmentCategory = "Surgery"
	CosmeticPlastic     TreatmentCategory = "Cosmetic & Plastic Surgery"
	Treatment           TreatmentCategory = "Treatment"
	Oncology            TreatmentCategory = "Oncology"
	Wellness            TreatmentCategory = "Wellness"
	TraditionalMedicine TreatmentCategory = "Traditional Medicine"
)

// ReferenceName is one canonical catalog entry. Aliases are alternative
// spellings scored alongside the canonical name; a hit on an alias still
// resolves to Name.
type ReferenceName struct {
	Name     string
	Aliases  []string
	Category TreatmentCategory
}

var hospitals = []ReferenceName{
	{Name: "Bumrungrad Intl", Aliases: []string{"Bumrungrad International", "Bumrungrad International Hospital", "Bumrungrad Hospital"}},
	{Name: "Mery Plastic Surgery"},
	{Name: "Pruksa Clinic"},
	{Name: "SLC hospital", Aliases: []string{"SLC Clinic"}},
	{Name: "Panacee Medical Center"},
	{Name: "The Square Clinic"},
	{Name: "Vethjani Hospital"},
	{Name: "Phuket Plastic Surgery Institute"},
	{Name: "Wansiri Hospital"},
	{Name: "Prince Court", Aliases: []string{"Prince Court Medical Centre"}},
	{Name: "Raffles Medical", Aliases: []string{"Raffles Hospital"}},
	{Name: "Sunway Medical Center", Aliases: []string{"Sunway Medical Centre"}},
	{Name: "Thomson Hospital"},
	{Name: "China Medical University Hospital - 中國醫藥大學附設醫院", Aliases: []string{"China Medical University Hospital"}},
}

var treatments = []ReferenceName{
	{Name: "Health Checkup", Category: Diagnostics, Aliases: []string{"Health Check Up", "Health Screening"}},
	{Name: "Cancer Screening", Category: Diagnostics},
	{Name: "MRI Scan", Category: Diagnostics},
	{Name: "CT Scan", Category: Diagnostics},
	{Name: "PET-CT Scan", Category: Diagnostics},
	{Name: "Blood Test", Category: Diagnostics},
	{Name: "Cardiac Screening", Category: Diagnostics},

	{Name: "Hip & Knee Replacement", Category: Surgery},
	{Name: "Spinal Surgery", Category: Surgery},
	{Name: "Brain Tumor Surgery", Category: Surgery},
	{Name: "Heart Valve Repair", Category: Surgery},
	{Name: "Kidney Transplant", Category: Surgery},
	{Name: "Liver Transplant", Category: Surgery},
	{Name: "LASIK Surgery", Category: Surgery},
	{Name: "Cataract Surgery", Category: Surgery},
	{Name: "Glaucoma Surgery", Category: Surgery},
	{Name: "Gastric Sleeve", Category: Surgery},
	{Name: "Gastric Bypass", Category: Surgery},
	{Name: "Endoscopic Sleeve Gastroplasty", Category: Surgery},
	{Name: "Gender-Affirming Surgery", Category: Surgery},
	{Name: "Pacemaker Implantation", Category: Surgery},
	{Name: "Prostate Surgery", Category: Surgery},
	{Name: "Vasectomy Reversal", Category: Surgery},
	{Name: "Hysterectomy", Category: Surgery},
	{Name: "Fibroid Removal", Category: Surgery},
	{Name: "Corneal Transplant", Category: Surgery},
	{Name: "Deep Brain Stimulation (DBS)", Category: Surgery},
	{Name: "Epilepsy Surgery", Category: Surgery},
	{Name: "Spinal Cord Surgery", Category: Surgery},

	{Name: "Facial Plastic Surgery", Category: CosmeticPlastic},
	{Name: "Breast Augmentation", Category: CosmeticPlastic},
	{Name: "Rhinoplasty", Category: CosmeticPlastic},
	{Name: "Liposuction", Category: CosmeticPlastic},
	{Name: "Botox Treatment", Category: CosmeticPlastic, Aliases: []string{"Botox"}},
	{Name: "Dermal Fillers", Category: CosmeticPlastic},
	{Name: "Hair Transplant", Category: CosmeticPlastic},
	{Name: "Laser Resurfacing", Category: CosmeticPlastic},
	{Name: "Buccal Fat Removal", Category: CosmeticPlastic},
	{Name: "Chin Augmentation", Category: CosmeticPlastic},
	{Name: "Teeth Whitening", Category: CosmeticPlastic},
	{Name: "Veneer", Category: CosmeticPlastic},

	{Name: "Dental Implants", Category: Treatment},
	{Name: "Root Canal", Category: Treatment},
	{Name: "IVF (In Vitro Fertilization)", Category: Treatment, Aliases: []string{"IVF"}},
	{Name: "IUI (Intrauterine Insemination)", Category: Treatment, Aliases: []string{"IUI"}},
	{Name: "Egg Freezing", Category: Treatment},
	{Name: "HRT (Hormone Replacement Therapy)", Category: Treatment, Aliases: []string{"HRT"}},

	{Name: "Chemotherapy", Category: Oncology},
	{Name: "Radiation Therapy", Category: Oncology},
	{Name: "Immunotherapy", Category: Oncology},
	{Name: "Proton Therapy", Category: Oncology},

	{Name: "Detox Retreats", Category: Wellness},
	{Name: "IV Therapy", Category: Wellness, Aliases: []string{"IV Drip", "IV Drip Therapy"}},
	{Name: "Anti-Aging Therapy", Category: Wellness},
	{Name: "Physiotherapy", Category: Wellness},

	{Name: "Acupuncture", Category: TraditionalMedicine},
	{Name: "Ayurveda", Category: TraditionalMedicine},
	{Name: "Thai Massage", Category: TraditionalMedicine},
}

var treatmentCategoryOrder = []TreatmentCategory{
	Diagnostics, Surgery, CosmeticPlastic, Treatment, Oncology, Wellness, TraditionalMedicine,
}

// Hospitals returns a copy of the hospital reference list.
func Hospitals() []ReferenceName { return cloneRefs(hospitals) }

// Treatments returns a copy of the treatment reference list.
func Treatments() []ReferenceName { return cloneRefs(treatments) }

// TreatmentCategories returns categories in catalog order.
func TreatmentCategories() []TreatmentCategory {
	return append([]TreatmentCategory(nil), treatmentCategoryOrder...)
}

// TreatmentsByCategory returns canonical treatment names for one category.
func TreatmentsByCategory(cat TreatmentCategory) []string {
	var out []string
	for _, t := range treatments {
		if t.Category == cat {
			out = append(out, t.Name)
		}
	}
	return out
}

// CategoryForTreatment looks up the category of a canonical treatment name.
func CategoryForTreatment(name string) (TreatmentCategory, bool) {
	for _, t := range treatments {
		if t.Name == name {
			return t.Category, true
		}
	}
	return "", false
}

func cloneRefs(in []ReferenceName) []ReferenceName {
	out := make([]ReferenceName, len(in))
	for i, r := range in {
		out[i] = r
		out[i].Aliases = append([]string(nil), r.Aliases...)
	}
	return out
}
