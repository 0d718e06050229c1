package domain

import "time"

// FeedbackType enumerates accepted feedback categories.
type FeedbackType string

const (
	FeedbackGeneral    FeedbackType = "feedback"
	FeedbackGrievance  FeedbackType = "grievance"
	FeedbackSuggestion FeedbackType = "suggestion"
)

// Feedback is a public feedback or grievance submission.
type Feedback struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Subject   string       `json:"subject,omitempty"`
	Message   string       `json:"message"`
	Type      FeedbackType `json:"type"`
	Locale    string       `json:"locale,omitempty"`
	Country   string       `json:"country,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}
