package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-gap-go/pkg/types"
)

func TestParseJSONStrict(t *testing.T) {
	reply := "Here you go:\n```json\n{\"technical_skills\": [\"Go\", \"SQL\"], \"soft_skills\": [\"Communication {team}\"], \"keywords_frequency\": {\"Go\": 3}}\n```"
	var kw types.JobKeywords
	partial, err := ParseJSON(reply, &kw)
	require.NoError(t, err)
	assert.False(t, partial)
	assert.Equal(t, []string{"Go", "SQL"}, kw.TechnicalSkills)
	assert.Equal(t, []string{"Communication {team}"}, kw.SoftSkills, "字符串中的括号不影响对象边界")
	assert.Equal(t, 3, kw.KeywordsFrequency["Go"])
}

func TestParseJSONTruncatedRecoversLeadingFields(t *testing.T) {
	reply := `{"technical_skills": ["Go", "SQL"], "soft_skills": ["Leadership"], "tools_technologies": ["Dock`
	var kw types.JobKeywords
	partial, err := ParseJSON(reply, &kw)
	require.NoError(t, err)
	assert.True(t, partial)
	assert.Equal(t, []string{"Go", "SQL"}, kw.TechnicalSkills)
	assert.Equal(t, []string{"Leadership"}, kw.SoftSkills)
	assert.Empty(t, kw.ToolsTechnologies)
}

func TestParseJSONTypeMismatchIsPartial(t *testing.T) {
	reply := `{"technical_skills": "Go", "soft_skills": ["Teamwork"]}`
	var kw types.JobKeywords
	partial, err := ParseJSON(reply, &kw)
	require.NoError(t, err)
	assert.True(t, partial)
	assert.Equal(t, []string{"Teamwork"}, kw.SoftSkills)
}

func TestParseJSONNoObject(t *testing.T) {
	var kw types.JobKeywords
	_, err := ParseJSON("I cannot help with that.", &kw)
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseJSON(`{"technical_skills": [1, 2`, &kw)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":{"b":"}"}}`, extractJSONObject(`x {"a":{"b":"}"}} y {"c":1}`))
	assert.Equal(t, `{"a":"\"{"}`, extractJSONObject(`{"a":"\"{"}`))
	assert.Equal(t, `{"a":[1`, extractJSONObject(`pre {"a":[1`))
	assert.Equal(t, "", extractJSONObject("none"))
}
