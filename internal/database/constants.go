package database

// Name analyzer parameters
const (
	// MinGram is the shortest n-gram produced for names
	MinGram = 1

	// MaxGram is the longest n-gram produced for names
	MaxGram = 2
)
