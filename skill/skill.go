package skill

import (
	"context"
	"fmt"
	"strings"

	"github.com/rysweet/skwaq-sub005/core"
	"github.com/rysweet/skwaq-sub005/executor"
	"github.com/rysweet/skwaq-sub005/model"
)

const (
	knowledgeSystem = "You are a security knowledge retrieval assistant. Answer with concise, " +
		"factual background on the requested topic, citing well-known vulnerability classes where relevant."
	analysisSystem = "You are a code analysis assistant. Identify potential vulnerabilities in the " +
		"described code or repository and report each finding on its own line."
	critiqueSystem = "You are a critical reviewer. Assess the provided analysis against the provided " +
		"background knowledge, flagging unsupported claims and missed issues."
	factCheckSystem = "You are a fact checker. For each claim, state whether it is supported, " +
		"refuted or unverifiable, with a one-sentence justification."
	verifySystem = "You are a verification assistant. Confirm or reject each finding and " +
		"summarize the overall confidence."
)

// NewExecutorRegistry wires every built-in skill against a single model and
// returns an executor registry serving all five task types.
func NewExecutorRegistry(m model.Model) *executor.Registry {
	return executor.NewRegistry(map[string]executor.Func{
		core.TaskRetrieveKnowledge: RetrieveKnowledge(m),
		core.TaskAnalyzeCode:       AnalyzeCode(m),
		core.TaskCritiqueAnalysis:  CritiqueAnalysis(m),
		core.TaskCheckFacts:        CheckFacts(m),
		core.TaskVerifyFindings:    VerifyFindings(m),
	})
}

// RetrieveKnowledge returns an executor that answers the "query" parameter
// with background knowledge.
func RetrieveKnowledge(m model.Model) executor.Func {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		query, err := stringParam(params, "query")
		if err != nil {
			return nil, err
		}
		resp, err := m.Generate(ctx, model.Request{System: knowledgeSystem, Prompt: query})
		if err != nil {
			return nil, fmt.Errorf("knowledge retrieval: %w", err)
		}
		return map[string]any{
			"query":   query,
			"results": splitLines(resp.Text),
		}, nil
	}
}

// AnalyzeCode returns an executor that reports findings for the code or
// repository described in the parameters.
func AnalyzeCode(m model.Model) executor.Func {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		var sb strings.Builder
		if repo, _ := params["repository"].(string); repo != "" {
			fmt.Fprintf(&sb, "Repository: %s\n", repo)
		}
		if code, _ := params["code"].(string); code != "" {
			fmt.Fprintf(&sb, "Code:\n%s\n", code)
		}
		if query, _ := params["query"].(string); query != "" {
			fmt.Fprintf(&sb, "Focus: %s\n", query)
		}
		if sb.Len() == 0 {
			return nil, fmt.Errorf("code analysis requires a repository, code or query parameter")
		}

		resp, err := m.Generate(ctx, model.Request{System: analysisSystem, Prompt: sb.String()})
		if err != nil {
			return nil, fmt.Errorf("code analysis: %w", err)
		}
		return map[string]any{"findings": splitLines(resp.Text)}, nil
	}
}

// CritiqueAnalysis returns an executor that reviews a prior analysis against
// retrieved knowledge.
func CritiqueAnalysis(m model.Model) executor.Func {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		prompt := fmt.Sprintf("Background knowledge:\n%s\n\nAnalysis under review:\n%s\n",
			renderValue(params["knowledge"]), renderValue(params["analysis"]))

		resp, err := m.Generate(ctx, model.Request{System: critiqueSystem, Prompt: prompt})
		if err != nil {
			return nil, fmt.Errorf("critique: %w", err)
		}
		return map[string]any{"critique": resp.Text}, nil
	}
}

// CheckFacts returns an executor that checks the "claims" parameter.
func CheckFacts(m model.Model) executor.Func {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		claims, ok := params["claims"]
		if !ok {
			return nil, fmt.Errorf("fact checking requires a claims parameter")
		}
		resp, err := m.Generate(ctx, model.Request{System: factCheckSystem, Prompt: renderValue(claims)})
		if err != nil {
			return nil, fmt.Errorf("fact check: %w", err)
		}
		return map[string]any{"assessments": splitLines(resp.Text)}, nil
	}
}

// VerifyFindings returns an executor that verifies the "facts" or "findings"
// parameter.
func VerifyFindings(m model.Model) executor.Func {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		subject, ok := params["facts"]
		if !ok {
			subject, ok = params["findings"]
		}
		if !ok {
			return nil, fmt.Errorf("verification requires a facts or findings parameter")
		}
		resp, err := m.Generate(ctx, model.Request{System: verifySystem, Prompt: renderValue(subject)})
		if err != nil {
			return nil, fmt.Errorf("verification: %w", err)
		}
		return map[string]any{"verification": resp.Text}, nil
	}
}

func stringParam(params map[string]any, key string) (string, error) {
	s, _ := params[key].(string)
	if s == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return s, nil
}

// splitLines breaks a completion into trimmed non-empty lines so result
// payloads carry one item per finding.
func splitLines(text string) []any {
	var out []any
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// renderValue flattens an arbitrary parameter value into prompt text.
func renderValue(v any) string {
	switch vv := v.(type) {
	case nil:
		return "(none)"
	case string:
		return vv
	case []any:
		var sb strings.Builder
		for _, item := range vv {
			fmt.Fprintf(&sb, "- %v\n", item)
		}
		return sb.String()
	case map[string]any:
		var sb strings.Builder
		for k, item := range vv {
			fmt.Fprintf(&sb, "%s: %v\n", k, item)
		}
		return sb.String()
	default:
		return fmt.Sprintf("%v", vv)
	}
}
