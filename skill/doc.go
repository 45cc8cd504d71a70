// Package skill provides the model-backed executor functions behind the
// built-in worker agents: knowledge retrieval, code analysis, critique, fact
// checking and verification.
//
// Each skill is an executor.Func closed over a model.Model. The functions
// build a role-specific system instruction, render the task parameters into a
// prompt and return the completion in the task result payload, so the same
// skill runs unchanged against OpenAI, Anthropic or a mock.
package skill
