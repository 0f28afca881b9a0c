package types

const (
	// TeamIDNone is used when the server runs without multi-team auth.
	TeamIDNone = "none"
)

// User is the authenticated caller. Identity comes from an external provider.
type User struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	TeamIDs []string `json:"teamIDs"`
}

// MemberOf reports whether the user belongs to the team.
func (u User) MemberOf(teamID string) bool {
	for _, id := range u.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// AnalysisSummary is the listing form of a saved analysis.
type AnalysisSummary struct {
	ID               string  `json:"id"`
	ProjectID        string  `json:"projectID"`
	GeneratedAt      string  `json:"generatedAt"`
	SystemSizeKW     float64 `json:"systemSizeKW"`
	AnnualGeneration float64 `json:"annualGeneration"`
}

// Summary returns the listing form of the result.
func (r AnalysisResult) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:               r.ID,
		ProjectID:        r.ProjectID,
		GeneratedAt:      r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		SystemSizeKW:     r.SystemSizeKW,
		AnnualGeneration: r.AnnualGeneration,
	}
}
