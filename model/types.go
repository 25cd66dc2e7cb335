// Package model provides domain types shared across packages.
package model

import "strings"

// SourceFile is one decoded file handed over by a file source.
// The analysis pipeline treats it as read-only.
type SourceFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// Section names of an analysis, in the order they are rendered.
const (
	SectionOverview       = "Project Overview"
	SectionFeatures       = "Key Features"
	SectionLibraries      = "Libraries & Dependencies"
	SectionWorkflow       = "Project Workflow"
	SectionImplementation = "Implementation Details"
	SectionStrengths      = "Project Strengths"
	SectionImprovements   = "Areas for Improvement"
)

// SectionNames lists every analysis section in fixed order.
var SectionNames = []string{
	SectionOverview,
	SectionFeatures,
	SectionLibraries,
	SectionWorkflow,
	SectionImplementation,
	SectionStrengths,
	SectionImprovements,
}

// CriticalSections must be present for an analysis to be accepted.
var CriticalSections = []string{
	SectionWorkflow,
	SectionStrengths,
	SectionImprovements,
}

// IsCritical reports whether name is one of CriticalSections.
func IsCritical(name string) bool {
	for _, s := range CriticalSections {
		if s == name {
			return true
		}
	}
	return false
}

// Section is a named block of an analysis.
type Section struct {
	Name    string
	Content string
}

// AnalysisResult is a validated, formatted analysis.
// The zero value is the empty signal: the response was unusable and must be regenerated.
type AnalysisResult struct {
	FullText string
	Sections []Section
}

// IsEmpty reports whether r is the empty signal.
func (r AnalysisResult) IsEmpty() bool {
	return r.FullText == "" && len(r.Sections) == 0
}

// Section returns the content of the named section.
func (r AnalysisResult) Section(name string) (string, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s.Content, true
		}
	}
	return "", false
}

// WorkflowStep is one node of a workflow diagram.
type WorkflowStep struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsSystem    bool   `json:"isSystem"`
}

// Label returns a one-line form of the step for logs and text output.
func (s WorkflowStep) Label() string {
	return strings.TrimSpace(s.Title + ": " + s.Description)
}

// Workflows holds the two step sequences of a project.
type Workflows struct {
	System []WorkflowStep
	User   []WorkflowStep
}

// RepoInfo describes the project a file set came from.
type RepoInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
}
