// Package intent defines the closed intent taxonomy and the classifier that maps
// a raw user message onto it.
package intent

// Intent is one of the six routing categories. The string value is the exact
// taxonomy label the classifier prompt asks the model to return.
type Intent string

// Taxonomy, in prompt order.
const (
	GeneralInformation         Intent = "General Information"
	GreetingFarewell           Intent = "Greeting and Farewell"
	MotivationStressSupport    Intent = "Motivation and Stress Support"
	PerformanceAssignmentQuery Intent = "Performance and Assignment Query"
	StudyPlanRequest           Intent = "Study Plan Request"
	Other                      Intent = "Others"
)

// All returns the six intents in taxonomy order.
func All() []Intent {
	return []Intent{
		GeneralInformation,
		GreetingFarewell,
		MotivationStressSupport,
		PerformanceAssignmentQuery,
		StudyPlanRequest,
		Other,
	}
}

// Valid reports whether i is a member of the taxonomy.
func (i Intent) Valid() bool {
	switch i {
	case GeneralInformation, GreetingFarewell, MotivationStressSupport,
		PerformanceAssignmentQuery, StudyPlanRequest, Other:
		return true
	default:
		return false
	}
}

func (i Intent) String() string {
	return string(i)
}

// Parse matches s against the taxonomy exactly.
func Parse(s string) (Intent, bool) {
	in := Intent(s)
	return in, in.Valid()
}
