package config

// CategoryWeights orders command categories in the help listing; unknown
// categories sort last.
var CategoryWeights = map[string]int{
	"Information": 0,
	"Tags":        10,
	"Filter":      20,
	"Admin":       60,
}

// CategoryWeight returns the weight of category.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 1000
}
