package league

// League is immutable reference data; rows are seeded by migrations
// and only ever looked up by code.
type League struct {
	ID   int64
	Code string
}

// Codes used across the ingestion pipeline. NCAAB is the one league
// whose odds feeds disagree with the scraped team names badly enough
// to need tolerant matching.
const (
	CodeNBA   = "NBA"
	CodeNCAAB = "NCAAB"
	CodeNFL   = "NFL"
	CodeMLB   = "MLB"
	CodeNHL   = "NHL"
)
