package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resume-gap-go/pkg/types"
)

func TestSuggest(t *testing.T) {
	job := types.JobKeywords{
		TechnicalSkills:   []string{"Python", "SQL", "Spark", "Scala", "Airflow", "dbt", "Kafka"},
		SoftSkills:        []string{"Communication"},
		ToolsTechnologies: []string{"Docker", "Terraform", "Jenkins", "Helm"},
		KeywordsFrequency: map[string]int{"Kafka": 5, "dbt": 4},
	}
	resume := types.ResumeData{
		TechnicalSkills: []string{"Python", "Java", "Go", "C++", "Rust", "Ruby", "PHP", "Perl", "Lua", "Haskell", "OCaml"},
		WorkExperience: []types.WorkExperience{
			{Company: "Acme", Achievements: []string{"Cut latency by 30%", "Led migration"}},
			{Company: "", Achievements: []string{"Maintained dashboards", "Mentored juniors", "Reduced cost 10%"}},
		},
		Projects: []types.Project{{Name: "etl", Technologies: []string{"Python"}}},
	}

	gap := NewAnalyzer().Analyze(job, resume)
	s := Suggest(gap, resume)

	assert.Equal(t, []string{
		"Add these technical skills: Kafka, dbt, SQL, Spark, Scala",
		msgOrganizeSkills,
	}, s.SkillsSection)

	assert.Equal(t, []string{
		"Add more quantified achievements to your role at Unknown",
		"Incorporate these keywords into your work experience: SQL, Spark, Scala, Airflow, dbt",
	}, s.ExperienceSection)

	assert.Equal(t, []string{"Consider adding projects that use: Docker, Terraform, Jenkins"}, s.ProjectsSection)
	assert.Equal(t, gap.Recommendations, s.OverallImprovements)
}

func TestSuggestWithoutProjectsOrExperience(t *testing.T) {
	gap := NewAnalyzer().Analyze(types.JobKeywords{ToolsTechnologies: []string{"Docker"}}, types.ResumeData{})
	s := Suggest(gap, types.ResumeData{})

	assert.Empty(t, s.SkillsSection)
	assert.Empty(t, s.ExperienceSection)
	assert.Equal(t, []string{msgAddProjects}, s.ProjectsSection)
}
