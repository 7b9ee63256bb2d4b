package domain

// SearchStrategy selects how retrieval ranks candidates.
type SearchStrategy string

// Available strategies.
const (
	// StrategySimilarity returns the top-k nearest neighbours.
	StrategySimilarity SearchStrategy = "similarity"

	// StrategyMMR re-ranks a larger candidate pool by maximal marginal relevance.
	StrategyMMR SearchStrategy = "mmr"
)

// IsValid returns true if the strategy is recognised.
func (s SearchStrategy) IsValid() bool {
	return s == StrategySimilarity || s == StrategyMMR
}

// String returns the string representation.
func (s SearchStrategy) String() string {
	return string(s)
}

// Retrieval defaults.
const (
	DefaultRetrievalK = 6
	DefaultFetchK     = 20
	DefaultLambdaMult = 0.5
)

// RetrievalOptions configures a retrieval call.
type RetrievalOptions struct {
	// K is the number of results to return.
	K int

	// FetchK is the candidate pool size for MMR.
	FetchK int

	// LambdaMult trades relevance (1) against diversity (0) for MMR.
	LambdaMult float64

	// LambdaSet marks LambdaMult as explicit. A zero LambdaMult without it
	// means unset and takes the default.
	LambdaSet bool

	// Strategy selects similarity or MMR ranking.
	Strategy SearchStrategy
}

// DefaultRetrievalOptions returns MMR with k=6, fetch_k=20, lambda_mult=0.5.
func DefaultRetrievalOptions() RetrievalOptions {
	return RetrievalOptions{
		K:          DefaultRetrievalK,
		FetchK:     DefaultFetchK,
		LambdaMult: DefaultLambdaMult,
		LambdaSet:  true,
		Strategy:   StrategyMMR,
	}
}

// WithDefaults fills unset fields from DefaultRetrievalOptions.
// FetchK is raised to K when smaller. The result always has LambdaSet.
func (o RetrievalOptions) WithDefaults() RetrievalOptions {
	d := DefaultRetrievalOptions()
	if o.K <= 0 {
		o.K = d.K
	}
	if o.FetchK <= 0 {
		o.FetchK = d.FetchK
	}
	if o.FetchK < o.K {
		o.FetchK = o.K
	}
	if (o.LambdaMult == 0 && !o.LambdaSet) || o.LambdaMult < 0 || o.LambdaMult > 1 {
		o.LambdaMult = d.LambdaMult
	}
	o.LambdaSet = true
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	return o
}

// RetrievalResult is a ranked chunk returned for a query.
type RetrievalResult struct {
	// ID is the vector record id.
	ID string

	// Text is the chunk content.
	Text string

	// Source identifies the originating document.
	Source string

	// Score is the raw similarity to the query.
	Score float64

	// Metadata holds any further record metadata.
	Metadata map[string]string
}
