package services

import (
	"fmt"
	"strings"

	"github.com/dealshield-inc/dealshield-engine/pkg/models"
)

const safeClauseSystemMessage = `You are a contract lawyer who rewrites risky brand-deal clauses to protect content creators.
Given a problematic clause and the concern it raises, produce a replacement clause a brand would still plausibly accept.

Respond with a JSON object:
- safeClause: the full rewritten clause text, ready to paste into the contract
- explanation: 1-2 sentences on what changed and why it protects the creator

Respond ONLY with valid JSON. No markdown, no explanations outside the JSON.`

const contractSystemMessage = `You are a contract lawyer drafting brand-deal agreements for content creators.
Contracts you produce are balanced but creator-protective: clear payment terms, bounded usage rights, explicit deliverables, and termination protections.

Respond with a JSON object:
- contractHtml: the complete contract as clean semantic HTML (h1/h2/p/ol/li only, no styling)

Respond ONLY with valid JSON. No markdown fences.`

const negotiationSystemMessage = `You write short, professional negotiation emails on behalf of content creators.
The tone is collaborative, not adversarial: the creator wants the deal, on fairer terms.

Respond with a JSON object:
- message: the email body, plain text, ready to send

Respond ONLY with valid JSON.`

func buildFixPrompt(req *fixPayload) string {
	var sb strings.Builder

	sb.WriteString("Rewrite the following contract clause so it no longer puts the creator at risk.\n\n")
	if req.OriginalClause != "" {
		sb.WriteString("## Original Clause\n")
		sb.WriteString(req.OriginalClause)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "## Identified Problem\nSeverity: %s\nTitle: %s\n", req.Severity, req.Title)
	if req.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", req.Description)
	}
	if req.ClauseReference != "" {
		fmt.Fprintf(&sb, "Clause reference: %s\n", req.ClauseReference)
	}
	if req.Recommendation != "" {
		fmt.Fprintf(&sb, "\nRecommended direction: %s\n", req.Recommendation)
	}

	return sb.String()
}

func buildSafeContractPrompt(contractText string, issues []models.AnalysisIssue, brandName, creatorName string) string {
	var sb strings.Builder

	sb.WriteString("Rewrite the contract below into a creator-safe version. Keep the commercial terms; fix only the protections.\n\n")
	if brandName != "" || creatorName != "" {
		fmt.Fprintf(&sb, "Parties: brand %q, creator %q.\n\n", brandName, creatorName)
	}
	sb.WriteString("## Issues To Resolve\n")
	for i, issue := range issues {
		fmt.Fprintf(&sb, "%d. [%s] %s", i+1, issue.Severity, issue.Title)
		if issue.Recommendation != "" {
			fmt.Fprintf(&sb, " (fix: %s)", issue.Recommendation)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n## Original Contract\n")
	sb.WriteString(contractText)

	return sb.String()
}

func buildScratchContractPrompt(req *scratchContractPayload) string {
	var sb strings.Builder

	sb.WriteString("Draft a complete brand-deal contract between the following parties.\n\n")
	fmt.Fprintf(&sb, "## Brand\nName: %s\nAddress: %s\nEmail: %s\n\n", req.BrandName, req.BrandAddress, req.BrandEmail)
	fmt.Fprintf(&sb, "## Creator\nName: %s\nAddress: %s\nEmail: %s\n\n", req.CreatorName, req.CreatorAddress, req.CreatorEmail)
	if req.DealTerms != "" {
		sb.WriteString("## Agreed Terms\n")
		sb.WriteString(req.DealTerms)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Include payment terms, deliverables, usage rights, exclusivity limits, revision policy, and termination clauses.")

	return sb.String()
}

// buildNegotiationPrompt produces the two-section prompt: clauses that are
// risky as written, then protections missing entirely.
func buildNegotiationPrompt(req *negotiationPayload) string {
	var sb strings.Builder

	sb.WriteString("Write a negotiation email from the creator to the brand about the contract concerns below.\n\n")
	if req.BrandName != "" {
		fmt.Fprintf(&sb, "Brand: %s\n", req.BrandName)
	}
	if req.CreatorName != "" {
		fmt.Fprintf(&sb, "Creator: %s\n", req.CreatorName)
	}
	if len(req.RiskyClauses) > 0 {
		sb.WriteString("\n## Risky Clauses To Renegotiate\n")
		for _, c := range req.RiskyClauses {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	if len(req.MissingClauses) > 0 {
		sb.WriteString("\n## Missing Protections To Request\n")
		for _, c := range req.MissingClauses {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	sb.WriteString("\nKeep it under 250 words and end with a concrete ask.")

	return sb.String()
}
