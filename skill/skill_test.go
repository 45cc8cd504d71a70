package skill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/model"
)

func TestNewExecutorRegistryCoversAllTaskTypes(t *testing.T) {
	execs := NewExecutorRegistry(model.NewMockModel("m"))
	err := execs.Validate(
		core.TaskRetrieveKnowledge,
		core.TaskAnalyzeCode,
		core.TaskCritiqueAnalysis,
		core.TaskCheckFacts,
		core.TaskVerifyFindings,
	)
	assert.NoError(t, err)
}

func TestRetrieveKnowledge(t *testing.T) {
	m := model.NewMockModel("m")
	m.AddResponse("sql injection", "tainted input reaches the query builder\nparameterize all statements")

	result, err := RetrieveKnowledge(m)(context.Background(), map[string]any{"query": "sql injection"})
	require.NoError(t, err)
	assert.Equal(t, "sql injection", result["query"])
	assert.Equal(t, []any{
		"tainted input reaches the query builder",
		"parameterize all statements",
	}, result["results"])
}

func TestRetrieveKnowledgeMissingQuery(t *testing.T) {
	_, err := RetrieveKnowledge(model.NewMockModel("m"))(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestAnalyzeCodeBuildsPromptFromParameters(t *testing.T) {
	m := model.NewMockModel("m")

	result, err := AnalyzeCode(m)(context.Background(), map[string]any{
		"repository": "git://example/repo",
		"query":      "memory safety",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result["findings"])

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "git://example/repo")
	assert.Contains(t, reqs[0].Prompt, "memory safety")
}

func TestAnalyzeCodeRequiresSubject(t *testing.T) {
	_, err := AnalyzeCode(model.NewMockModel("m"))(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestCritiqueAnalysisRendersBothInputs(t *testing.T) {
	m := model.NewMockModel("m")

	result, err := CritiqueAnalysis(m)(context.Background(), map[string]any{
		"knowledge": map[string]any{"results": []any{"background fact"}},
		"analysis":  map[string]any{"findings": []any{"finding one"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result["critique"])

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Prompt, "background fact")
	assert.Contains(t, reqs[0].Prompt, "finding one")
}

func TestCheckFactsRequiresClaims(t *testing.T) {
	_, err := CheckFacts(model.NewMockModel("m"))(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestVerifyFindingsAcceptsFactsOrFindings(t *testing.T) {
	m := model.NewMockModel("m")

	result, err := VerifyFindings(m)(context.Background(), map[string]any{"findings": []any{"claim"}})
	require.NoError(t, err)
	assert.NotEmpty(t, result["verification"])

	_, err = VerifyFindings(m)(context.Background(), map[string]any{})
	assert.Error(t, err)
}
