package usecase

import (
	"context"

	"bargain-backend/model"
	"bargain-backend/pkg/llm"
)

// SearchProvider finds listings on a marketplace.
type SearchProvider interface {
	Login(ctx context.Context, cred model.Credentials) (bool, error)
	Search(ctx context.Context, keyword string, maxPrice float64) ([]model.Candidate, error)
}

// MessagingChannel reaches sellers. One channel is shared by every session
// of a batch, so implementations must be safe for concurrent use.
type MessagingChannel interface {
	Send(ctx context.Context, sellerID, text string) error
	// AwaitReply returns "" when the seller did not answer.
	AwaitReply(ctx context.Context, sellerID string) (string, error)
}

// MessageGenerator writes buyer messages and reads requirements.
// *llm.Gateway implements it.
type MessageGenerator interface {
	AnalyzeRequirement(ctx context.Context, query string) model.RequirementAnalysis
	GenerateNegotiationMessage(ctx context.Context, item model.Candidate, seller llm.SellerInfo, history []model.ConversationTurn, targetPrice float64) string
}

// CandidateFinder runs the search phase of a comparison.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, req model.SearchRequest) ([]model.Candidate, error)
}

// Negotiator runs one seller session to completion.
type Negotiator interface {
	Run(ctx context.Context, item model.Candidate, targetPrice float64) model.NegotiationOutcome
}

// ResultRecorder persists finished comparisons.
type ResultRecorder interface {
	RecordResult(ctx context.Context, task model.Task) error
}

// TaskStore keeps task progress records.
type TaskStore interface {
	Create(task model.Task) error
	Update(task model.Task) error
	Get(id string) (model.Task, error)
}
