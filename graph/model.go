package graph

import "github.com/UkralStul/content-graph-service/internal/domain"

type SearchKeywordsResult struct {
	Query string            `json:"query"`
	Hits  []*domain.Keyword `json:"hits"`
}

type NotificationEdge struct {
	Node   *domain.Notification `json:"node"`
	Cursor string               `json:"cursor"`
}

type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type NotificationConnection struct {
	Edges    []*NotificationEdge `json:"edges"`
	PageInfo *PageInfo           `json:"pageInfo"`
}

// EmptyResponse is returned by mutations that have nothing to report.
type EmptyResponse struct {
	OK bool `json:"_"`
}

var emptyResponse = &EmptyResponse{OK: true}
