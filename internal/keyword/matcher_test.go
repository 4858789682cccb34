package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "machine learning", Normalize("  Machine Learning \t"))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "nodejs", StripSeparators("node.js"))
	assert.Equal(t, "scikitlearn", StripSeparators("scikit_learn"))
	assert.Equal(t, "cicd", StripSeparators("ci - cd"))
}

func TestIsPresent(t *testing.T) {
	tests := []struct {
		name       string
		keyword    string
		candidates []string
		want       bool
	}{
		{"精确匹配忽略大小写", "Python", []string{"python"}, true},
		{"分隔符变体", "Node.js", []string{"nodejs"}, true},
		{"分隔符变体-反向", "nodejs", []string{"Node-JS"}, true},
		{"关键词是候选的子串", "SQL", []string{"SQL Server"}, true},
		{"候选是关键词的子串", "Machine Learning Engineer", []string{"machine learning"}, true},
		{"无匹配", "Python", []string{"java", "react"}, false},
		{"空候选集合", "Python", nil, false},
		{"空关键词", "   ", []string{"python"}, false},
		{"下划线变体", "scikit_learn", []string{"scikit-learn"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPresent(tt.keyword, NewCandidateSet(tt.candidates...)))
		})
	}
}

func TestIsPresentOrderIndependent(t *testing.T) {
	a := NewCandidateSet("go", "docker", "k8s")
	b := NewCandidateSet("k8s", "docker", "go")
	for _, kw := range []string{"Docker", "Go", "Kubernetes", "K8S", "rust"} {
		assert.Equal(t, IsPresent(kw, a), IsPresent(kw, b), kw)
	}
}

func TestCandidateSetSkipsBlank(t *testing.T) {
	cs := NewCandidateSet("", "  ", "Python", "python ")
	assert.Equal(t, 1, cs.Len())
	assert.False(t, IsPresent("java", cs), "空候选不能作为子串匹配任意关键词")
	assert.False(t, IsPresent("java", nil))
}

func TestExtractTerms(t *testing.T) {
	got := ExtractTerms("Built REST APIs in Node.js and deployed to AWS with Docker", TechVocabulary)
	assert.Equal(t, []string{"node.js", "aws", "docker"}, got)

	// 子串扫描：javascript 同时命中 java
	got = ExtractTerms("Rewrote the JavaScript frontend", TechVocabulary)
	assert.Equal(t, []string{"java", "javascript"}, got)

	assert.Empty(t, ExtractTerms("Mentored two interns", TechVocabulary))
}
