package domain

// Source describes where the data behind a synthesis result came from.
type Source string

const (
	SourceLive       Source = "live"       // gateway aspects against current sky
	SourceCalculated Source = "calculated" // sky known, aspects detected locally from the chart
	SourceMock       Source = "mock"       // no sky data, template content only
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceLive || s == SourceCalculated || s == SourceMock
}
