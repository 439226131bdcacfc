package model

import (
	"strings"
	"time"
)

// Profile is the owner's basic career profile.
type Profile struct {
	UserID   string `json:"user_id" yaml:"user_id"`
	FullName string `json:"full_name" yaml:"full_name"`
	Email    string `json:"email,omitempty" yaml:"email"`
	Phone    string `json:"phone,omitempty" yaml:"phone"`
	Location string `json:"location,omitempty" yaml:"location"`
	Headline string `json:"headline,omitempty" yaml:"headline"`
	Summary  string `json:"summary,omitempty" yaml:"summary"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin"`
	Website  string `json:"website,omitempty" yaml:"website"`
}

// Job is a posting the owner is tracking.
type Job struct {
	ID          int64  `json:"id" yaml:"id"`
	UserID      string `json:"user_id" yaml:"user_id"`
	Title       string `json:"title" yaml:"title"`
	Company     string `json:"company" yaml:"company"`
	Location    string `json:"location,omitempty" yaml:"location"`
	Description string `json:"description,omitempty" yaml:"description"`
	URL         string `json:"url,omitempty" yaml:"url"`
	SalaryMin   *int   `json:"salary_min,omitempty" yaml:"salary_min"`
	SalaryMax   *int   `json:"salary_max,omitempty" yaml:"salary_max"`
	Status      string `json:"status,omitempty" yaml:"status"`
}

// Skill is one entry in the owner's skill inventory.
type Skill struct {
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category"`
	Level    string `json:"level,omitempty" yaml:"level"`
	Years    int    `json:"years,omitempty" yaml:"years"`
}

// Employment is one past or current position.
type Employment struct {
	Company      string   `json:"company" yaml:"company"`
	Title        string   `json:"title" yaml:"title"`
	Location     string   `json:"location,omitempty" yaml:"location"`
	StartDate    string   `json:"start_date,omitempty" yaml:"start_date"`
	EndDate      string   `json:"end_date,omitempty" yaml:"end_date"`
	Current      bool     `json:"current,omitempty" yaml:"current"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	Achievements []string `json:"achievements,omitempty" yaml:"achievements"`
}

// Education is one degree or program.
type Education struct {
	Institution string `json:"institution" yaml:"institution"`
	Degree      string `json:"degree,omitempty" yaml:"degree"`
	Field       string `json:"field,omitempty" yaml:"field"`
	StartDate   string `json:"start_date,omitempty" yaml:"start_date"`
	EndDate     string `json:"end_date,omitempty" yaml:"end_date"`
	GPA         string `json:"gpa,omitempty" yaml:"gpa"`
}

// Project is a portfolio entry.
type Project struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	URL          string   `json:"url,omitempty" yaml:"url"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies"`
}

// Certification is a credential held by the owner.
type Certification struct {
	Name      string `json:"name" yaml:"name"`
	Issuer    string `json:"issuer,omitempty" yaml:"issuer"`
	IssuedAt  string `json:"issued_at,omitempty" yaml:"issued_at"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at"`
}

// Company size buckets. Any other value must be stored as null.
const (
	SizeStartup = "startup"
	SizeSmall   = "small"
	SizeMedium  = "medium"
	SizeLarge   = "large"
)

// Company holds durable facts about an employer. It is shared by all users and never expires.
type Company struct {
	Name        string   `json:"name"`
	Industry    string   `json:"industry,omitempty"`
	SizeBucket  *string  `json:"size_bucket"`
	Location    string   `json:"location,omitempty"`
	FoundedYear *int     `json:"founded_year,omitempty"`
	Mission     string   `json:"mission,omitempty"`
	Culture     string   `json:"culture,omitempty"`
	Leadership  []string `json:"leadership,omitempty"`
	Products    []string `json:"products,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// NewsItem is one recent headline about a company.
type NewsItem struct {
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	Date    string `json:"date,omitempty"`
	URL     string `json:"url,omitempty"`
}

// CompanyResearch holds time-sensitive facts that expire.
type CompanyResearch struct {
	CompanyName  string     `json:"company_name"`
	News         []NewsItem `json:"news"`
	RecentEvents []string   `json:"recent_events"`
	FetchedAt    time.Time  `json:"fetched_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// Fresh reports whether the research may still be trusted at now.
func (r *CompanyResearch) Fresh(now time.Time) bool {
	return r != nil && now.Before(r.ExpiresAt)
}

// CompanyKey normalizes a company name for lookups.
func CompanyKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
