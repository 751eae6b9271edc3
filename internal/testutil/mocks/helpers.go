package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/call"
)

// AnyContext matches any context.Context, cancelled or not.
func AnyContext() interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool { return ctx != nil })
}

// QuerySince matches an outcome query whose window starts at since.
func QuerySince(since time.Time) interface{} {
	return mock.MatchedBy(func(q call.OutcomeQuery) bool {
		return q.Since.Equal(since)
	})
}

// QueryForLead matches an outcome query filtered to one lead.
func QueryForLead(id uuid.UUID) interface{} {
	return mock.MatchedBy(func(q call.OutcomeQuery) bool {
		return q.LeadID != nil && *q.LeadID == id
	})
}

// QueryForPrefix matches an area-code outcome query.
func QueryForPrefix(prefix string) interface{} {
	return mock.MatchedBy(func(q call.OutcomeQuery) bool {
		return q.PhonePrefix == prefix
	})
}

