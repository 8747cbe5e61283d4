package notification

import (
	"testing"

	"github.com/UkralStul/content-graph-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postMentionCtx() *PostContext {
	return &PostContext{
		BaseContext: BaseContext{UserIDs: []string{"u2", "u3"}},
		Post:        &domain.Post{ID: "p1", Title: "Learning Go", SourceID: "s1"},
		Source:      &domain.Source{ID: "s1", Name: "Go blog"},
		Initiator:   &domain.User{ID: "u1", Name: "Ido <script>", Username: ptr("idoshamun"), Image: "https://img/u1.png"},
	}
}

func TestGenerate_PostMention(t *testing.T) {
	g := NewGenerator("https://app.example.com/")

	notifications, err := g.Generate(HandlerReturn{Type: domain.NotificationTypePostMention, Ctx: postMentionCtx()})
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	n := notifications[0]
	assert.Equal(t, "u2", n.UserID)
	assert.Equal(t, domain.NotificationTypePostMention, n.Type)
	assert.Equal(t, "<b>Ido &lt;script&gt;</b> mentioned you in a post", n.Title)
	require.NotNil(t, n.Description)
	assert.Equal(t, "Learning Go", *n.Description)
	assert.Equal(t, "https://app.example.com/posts/p1", n.TargetURL)
	assert.Equal(t, "p1", n.ReferenceID)
	assert.Equal(t, ReferenceTypePost, n.ReferenceType)
	assert.Equal(t, "u1", n.UniqueKey)
	assert.True(t, n.Public)
	require.Len(t, n.Avatars, 1)
	assert.Equal(t, "https://app.example.com/idoshamun", n.Avatars[0].TargetURL)

	assert.Equal(t, "u3", notifications[1].UserID)
	assert.NotSame(t, notifications[0].Avatars[0], notifications[1].Avatars[0])
}

func TestGenerate_AvatarWithoutUsername(t *testing.T) {
	ctx := postMentionCtx()
	ctx.Initiator.Username = nil

	notifications, err := NewGenerator("https://app").Generate(HandlerReturn{Type: domain.NotificationTypePostMention, Ctx: ctx})
	require.NoError(t, err)
	assert.Equal(t, "https://app/u1", notifications[0].Avatars[0].TargetURL)
}

func TestGenerate_PrivateSourceIsNotPublic(t *testing.T) {
	ctx := postMentionCtx()
	ctx.Source.Private = true

	notifications, err := NewGenerator("https://app").Generate(HandlerReturn{Type: domain.NotificationTypePostMention, Ctx: ctx})
	require.NoError(t, err)
	assert.False(t, notifications[0].Public)
}

func TestGenerate_Errors(t *testing.T) {
	g := NewGenerator("https://app")

	_, err := g.Generate(HandlerReturn{Type: "unknown", Ctx: postMentionCtx()})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = g.Generate(HandlerReturn{Type: domain.NotificationTypePostMention, Ctx: BaseContext{UserIDs: []string{"u1"}}})
	assert.ErrorIs(t, err, ErrBadContext)

	ctx := postMentionCtx()
	ctx.Initiator = nil
	_, err = g.Generate(HandlerReturn{Type: domain.NotificationTypePostMention, Ctx: ctx})
	assert.ErrorIs(t, err, ErrBadContext)
}

func ptr(s string) *string { return &s }
