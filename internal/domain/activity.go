package domain

// Activity is one tracked piece of work as stored in the document.
type Activity struct {
	ID                int      `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	ImpactDescription string   `json:"impact_description"`
	AISummary         string   `json:"ai_summary"`
	Date              string   `json:"date"`
	Tags              []string `json:"tags"`
}

// Document is the complete persisted state. It is always loaded and saved as a unit.
type Document struct {
	Activities []Activity `json:"activities"`
	Categories []string   `json:"categories"`
}

// UncategorizedLabel is the stats bucket for activities without a category.
const UncategorizedLabel = "Uncategorized"

// DefaultCategories seeds the category list of a fresh document.
var DefaultCategories = []string{
	"Speaking Engagement",
	"Blog Post",
	"Video Content",
	"Community Event",
	"Technical Workshop",
	"Documentation",
	"Open Source Contribution",
	"Customer Engagement",
	"Team Collaboration",
	"Mentoring",
}

// NewDocument returns the document written on first use.
func NewDocument() *Document {
	categories := make([]string, len(DefaultCategories))
	copy(categories, DefaultCategories)
	return &Document{
		Activities: []Activity{},
		Categories: categories,
	}
}

// NextActivityID returns max(id)+1, or 1 for an empty document. Gaps are never reused.
func (d *Document) NextActivityID() int {
	next := 1
	for _, activity := range d.Activities {
		if activity.ID >= next {
			next = activity.ID + 1
		}
	}
	return next
}

func (d *Document) indexOf(id int) int {
	for i, activity := range d.Activities {
		if activity.ID == id {
			return i
		}
	}
	return -1
}

// HasCategory reports whether name is already in the category list.
func (d *Document) HasCategory(name string) bool {
	for _, category := range d.Categories {
		if category == name {
			return true
		}
	}
	return false
}

// Normalize replaces nil slices with empty ones so encoded documents never carry null.
func (d *Document) Normalize() {
	if d.Activities == nil {
		d.Activities = []Activity{}
	}
	if d.Categories == nil {
		d.Categories = []string{}
	}
	for i := range d.Activities {
		if d.Activities[i].Tags == nil {
			d.Activities[i].Tags = []string{}
		}
	}
}

func (a Activity) clone() Activity {
	out := a
	out.Tags = append([]string{}, a.Tags...)
	return out
}
