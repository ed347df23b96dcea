package rubric

// Criterion is one scoring level within a section.
type Criterion struct {
	Points      int    `json:"points"`
	Description string `json:"description"`
}

// Section is a named rubric category with its ordered scoring levels.
type Section struct {
	Name            string      `json:"name"`
	ScoringCriteria []Criterion `json:"scoringCriteria"`
}

// Rubric is an ordered list of sections. Order is meaningful: it is both
// the display order and the order feedback is produced in.
type Rubric []Section

// MaxPoints returns the highest criterion score for the section.
func (s Section) MaxPoints() int {
	mx := 0
	for _, c := range s.ScoringCriteria {
		if c.Points > mx {
			mx = c.Points
		}
	}
	return mx
}

// TotalPoints sums the per-section maxima.
func (r Rubric) TotalPoints() int {
	total := 0
	for _, s := range r {
		total += s.MaxPoints()
	}
	return total
}

// Names returns section names in rubric order.
func (r Rubric) Names() []string {
	out := make([]string, len(r))
	for i, s := range r {
		out[i] = s.Name
	}
	return out
}

// Default is the rubric installed on first boot, aimed at a final
// technical design report.
func Default() Rubric {
	return Rubric{
		{
			Name: "Executive Summary",
			ScoringCriteria: []Criterion{
				{Points: 4, Description: "Clear problem, approach, key results, and recommendations."},
				{Points: 3, Description: "Mostly clear; minor gaps in results or recommendations."},
				{Points: 2, Description: "Important elements missing or unclear."},
				{Points: 1, Description: "Confusing or lacks core content."},
				{Points: 0, Description: "Absent or unusable."},
			},
		},
		{
			Name: "Context: Puerto Rico",
			ScoringCriteria: []Criterion{
				{Points: 4, Description: "Explicitly addresses PR-specific constraints (infrastructure, climate, regulations)."},
				{Points: 3, Description: "Mentions PR context with moderate specificity."},
				{Points: 2, Description: "Superficial references to PR context."},
				{Points: 1, Description: "Vague or generic context."},
				{Points: 0, Description: "No PR context."},
			},
		},
		{
			Name: "Process Description & Flows",
			ScoringCriteria: []Criterion{
				{Points: 5, Description: "Accurate process overview with flowrates, units, and assumptions."},
				{Points: 4, Description: "Solid description; minor missing values or units."},
				{Points: 3, Description: "Some process elements unclear or inconsistent."},
				{Points: 2, Description: "Major gaps; unclear flows or units."},
				{Points: 0, Description: "Not described."},
			},
		},
		{
			Name: "Safety & Environmental",
			ScoringCriteria: []Criterion{
				{Points: 4, Description: "Identifies hazards, mitigations, emissions, and compliance requirements."},
				{Points: 3, Description: "Covers most safety/env factors; minor omissions."},
				{Points: 2, Description: "Superficial; limited mitigations or compliance details."},
				{Points: 1, Description: "Vague mention without specifics."},
				{Points: 0, Description: "No discussion."},
			},
		},
		{
			Name: "Economic Analysis",
			ScoringCriteria: []Criterion{
				{Points: 4, Description: "Uses reasonable CAPEX/OPEX, sensitivity, and assumptions."},
				{Points: 3, Description: "Basic costs; limited sensitivity or assumptions."},
				{Points: 2, Description: "Rough estimates; unclear basis."},
				{Points: 1, Description: "Inconsistent or unsupported economics."},
				{Points: 0, Description: "Absent."},
			},
		},
		{
			Name: "Data, Methods, and Rigor",
			ScoringCriteria: []Criterion{
				{Points: 5, Description: "Credible data cited; methods reproducible; units and references consistent."},
				{Points: 4, Description: "Mostly credible/reproducible; few inconsistencies."},
				{Points: 3, Description: "Some gaps in data sources or methods."},
				{Points: 2, Description: "Sparse citations; unclear methods."},
				{Points: 0, Description: "No sources or methods."},
			},
		},
		{
			Name: "Figures, Tables, and Formatting",
			ScoringCriteria: []Criterion{
				{Points: 3, Description: "Legible figures/tables with captions and references in text."},
				{Points: 2, Description: "Mostly legible; inconsistent captions or references."},
				{Points: 1, Description: "Cluttered or unlabeled visuals."},
				{Points: 0, Description: "No usable visuals."},
			},
		},
		{
			Name: "Writing Quality",
			ScoringCriteria: []Criterion{
				{Points: 3, Description: "Clear, concise, and well-organized with minimal errors."},
				{Points: 2, Description: "Generally clear; some errors or structure issues."},
				{Points: 1, Description: "Frequent errors; hard to follow."},
				{Points: 0, Description: "Unclear or unreadable."},
			},
		},
	}
}
