package models

// StatsOverview aggregates the whole catalog. RatingDistribution always
// carries the keys "0" through "5".
type StatsOverview struct {
	TotalBooks         int64            `json:"total_books"`
	AveragePrice       float64          `json:"average_price"`
	RatingDistribution map[string]int64 `json:"rating_distribution"`
}

// CategoryStats aggregates the books of one category.
type CategoryStats struct {
	Category      string  `json:"category"`
	BookCount     int64   `json:"book_count"`
	AveragePrice  float64 `json:"average_price"`
	AverageRating float64 `json:"average_rating"`
}
