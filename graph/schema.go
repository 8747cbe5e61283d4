package graph

import (
	"github.com/graphql-go/graphql"

	"github.com/UkralStul/content-graph-service/internal/domain"
)

var keywordStatusEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "KeywordStatus",
	Values: graphql.EnumValueConfigMap{
		"pending": &graphql.EnumValueConfig{Value: domain.KeywordStatusPending},
		"allow":   &graphql.EnumValueConfig{Value: domain.KeywordStatusAllow},
		"deny":    &graphql.EnumValueConfig{Value: domain.KeywordStatusDeny},
	},
})

var keywordType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Keyword",
	Fields: graphql.Fields{
		"value":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"status":      &graphql.Field{Type: graphql.NewNonNull(keywordStatusEnum)},
		"occurrences": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"title":       &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"createdAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"updatedAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
	},
})

var searchKeywordsResultType = graphql.NewObject(graphql.ObjectConfig{
	Name: "KeywordSearchResults",
	Fields: graphql.Fields{
		"query": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"hits":  &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(keywordType)))},
	},
})

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"username":  &graphql.Field{Type: graphql.String},
		"image":     &graphql.Field{Type: graphql.String},
		"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
	},
})

var sourceType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Source",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"handle":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"image":     &graphql.Field{Type: graphql.String},
		"private":   &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
	},
})

var notificationAvatarType = graphql.NewObject(graphql.ObjectConfig{
	Name: "NotificationAvatar",
	Fields: graphql.Fields{
		"type":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"referenceId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"image":       &graphql.Field{Type: graphql.String},
		"targetUrl":   &graphql.Field{Type: graphql.String},
	},
})

var notificationType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Notification",
	Fields: graphql.Fields{
		"id":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"type":          &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"icon":          &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"title":         &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"description":   &graphql.Field{Type: graphql.String},
		"targetUrl":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"referenceId":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"referenceType": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"public":        &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"createdAt":     &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
		"readAt":        &graphql.Field{Type: graphql.DateTime},
		"avatars":       &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(notificationAvatarType)))},
	},
})

var pageInfoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PageInfo",
	Fields: graphql.Fields{
		"hasNextPage": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"endCursor":   &graphql.Field{Type: graphql.String},
	},
})

var notificationEdgeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "NotificationEdge",
	Fields: graphql.Fields{
		"node":   &graphql.Field{Type: graphql.NewNonNull(notificationType)},
		"cursor": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
	},
})

var notificationConnectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "NotificationConnection",
	Fields: graphql.Fields{
		"edges":    &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(notificationEdgeType)))},
		"pageInfo": &graphql.Field{Type: graphql.NewNonNull(pageInfoType)},
	},
})

var emptyResponseType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EmptyResponse",
	Fields: graphql.Fields{
		"_": &graphql.Field{Type: graphql.Boolean},
	},
})

func (r *postResolver) objectType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Post",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"title":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"url":       &graphql.Field{Type: graphql.String},
			"image":     &graphql.Field{Type: graphql.String},
			"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.DateTime)},
			"source": &graphql.Field{
				Type:    graphql.NewNonNull(sourceType),
				Resolve: r.source,
			},
			"tags": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Description: "Allowed keywords of the post",
				Resolve:     r.tags,
			},
			"author": &graphql.Field{
				Type:    userType,
				Resolve: r.author,
			},
		},
	})
}

// NewSchema builds the executable schema around r.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	postType := r.Post().objectType()
	q, m := r.Query(), r.Mutation()

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"keyword": &graphql.Field{
				Type: keywordType,
				Args: graphql.FieldConfigArgument{
					"value": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: q.keyword,
			},
			"randomPendingKeyword": &graphql.Field{
				Type:    keywordType,
				Resolve: q.randomPendingKeyword,
			},
			"countPendingKeywords": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: q.countPendingKeywords,
			},
			"searchKeywords": &graphql.Field{
				Type: graphql.NewNonNull(searchKeywordsResultType),
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: q.searchKeywords,
			},
			"keywords": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(keywordType))),
				Args: graphql.FieldConfigArgument{
					"status": &graphql.ArgumentConfig{Type: graphql.NewNonNull(keywordStatusEnum)},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: q.keywords,
			},
			"post": &graphql.Field{
				Type: postType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: q.post,
			},
			"posts": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(postType))),
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: q.posts,
			},
			"source": &graphql.Field{
				Type: sourceType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: q.source,
			},
			"user": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: q.user,
			},
			"notifications": &graphql.Field{
				Type: graphql.NewNonNull(notificationConnectionType),
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"cursor": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: q.notifications,
			},
			"unreadNotificationsCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: q.unreadNotificationsCount,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"allowKeyword": &graphql.Field{
				Type: graphql.NewNonNull(keywordType),
				Args: graphql.FieldConfigArgument{
					"keyword": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: m.setKeywordStatus(domain.KeywordStatusAllow),
			},
			"denyKeyword": &graphql.Field{
				Type: graphql.NewNonNull(keywordType),
				Args: graphql.FieldConfigArgument{
					"keyword": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: m.setKeywordStatus(domain.KeywordStatusDeny),
			},
			"setKeywordAsSynonym": &graphql.Field{
				Type: graphql.NewNonNull(keywordType),
				Args: graphql.FieldConfigArgument{
					"keywordToUpdate": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"originalKeyword": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: m.setKeywordAsSynonym,
			},
			"updateKeyword": &graphql.Field{
				Type: graphql.NewNonNull(keywordType),
				Args: graphql.FieldConfigArgument{
					"keyword":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"title":       &graphql.ArgumentConfig{Type: graphql.String},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: m.updateKeyword,
			},
			"tagPost": &graphql.Field{
				Type: graphql.NewNonNull(postType),
				Args: graphql.FieldConfigArgument{
					"postId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"keywords": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: m.tagPost,
			},
			"mentionUser": &graphql.Field{
				Type: graphql.NewNonNull(emptyResponseType),
				Args: graphql.FieldConfigArgument{
					"postId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: m.mentionUser,
			},
			"readNotifications": &graphql.Field{
				Type:    graphql.NewNonNull(emptyResponseType),
				Resolve: m.readNotifications,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
