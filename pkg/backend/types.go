package backend

import "time"

// JobQuery filters a job search.
type JobQuery struct {
	// JobTypes narrows results to the given employment types.
	JobTypes []string `json:"job_types,omitempty"`

	// Remote limits results to remote positions.
	Remote bool `json:"remote"`

	// Countries narrows results to the given country codes.
	Countries []string `json:"countries,omitempty"`

	// MaxAgeDays drops postings older than this many days.
	MaxAgeDays int `json:"max_age_days,omitempty"`

	// Keywords is the free-text part of the query.
	Keywords string `json:"keywords,omitempty"`
}

// JobPosting is one job search result. Optional fields are pointers so
// absent and empty stay distinguishable.
type JobPosting struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`

	Description *string    `json:"description,omitempty"`
	Salary      *string    `json:"salary,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	Remote      *bool      `json:"remote,omitempty"`
	JobType     *string    `json:"job_type,omitempty"`
}
