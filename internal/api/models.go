package api

import "github.com/liamchampton/write-my-performance-review/internal/domain"

// CreateActivityRequest is the payload for POST /api/activities.
type CreateActivityRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	ImpactDescription string   `json:"impact_description"`
	AISummary         string   `json:"ai_summary"`
	Date              *string  `json:"date"`
	Tags              []string `json:"tags"`
}

func (r CreateActivityRequest) toInput() domain.CreateActivityInput {
	return domain.CreateActivityInput{
		Title:             r.Title,
		Description:       r.Description,
		Category:          r.Category,
		ImpactDescription: r.ImpactDescription,
		AISummary:         r.AISummary,
		Date:              r.Date,
		Tags:              r.Tags,
	}
}

// UpdateActivityRequest is the payload for PUT /api/activities/{id}. Absent
// and null fields leave the stored value alone. id and date are ignored.
type UpdateActivityRequest struct {
	Title             *string   `json:"title"`
	Description       *string   `json:"description"`
	Category          *string   `json:"category"`
	ImpactDescription *string   `json:"impact_description"`
	AISummary         *string   `json:"ai_summary"`
	Tags              *[]string `json:"tags"`
}

func (r UpdateActivityRequest) toPatch() domain.ActivityPatch {
	return domain.ActivityPatch{
		Title:             r.Title,
		Description:       r.Description,
		Category:          r.Category,
		ImpactDescription: r.ImpactDescription,
		AISummary:         r.AISummary,
		Tags:              r.Tags,
	}
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Activities []domain.Activity `json:"activities"`
	Total      int               `json:"total"`
}

// CreateCategoryRequest is the payload for POST /api/categories.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type CategoryResponse struct {
	Name string `json:"name"`
}

// GenerateSummaryRequest is the payload for POST /api/generate-summary.
type GenerateSummaryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// GenerateReviewSummaryRequest is the payload for POST /api/generate-review-summary.
type GenerateReviewSummaryRequest struct {
	Activities []domain.Activity `json:"activities"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
