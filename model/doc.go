// Package model defines the provider-agnostic abstraction for the language
// models that back skill executors.
//
// Skills need exactly one thing from a model: a single-shot completion for a
// system instruction plus a prompt. The Request/Response shapes are kept to
// that minimum so providers (OpenAI, Anthropic) stay trivially swappable and
// tests can run against MockModel without touching a vendor SDK.
package model
