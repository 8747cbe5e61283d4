package notification

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/UkralStul/content-graph-service/internal/domain"
)

var (
	ErrUnknownType = errors.New("unknown notification type")
	ErrBadContext  = errors.New("context does not match notification type")
)

const (
	IconComment = "Comment"

	ReferenceTypePost = "post"

	AvatarTypeUser = "user"
)

// Generator renders notifications. Target URLs point at the web app.
type Generator struct {
	webappOrigin string
}

func NewGenerator(webappOrigin string) *Generator {
	return &Generator{webappOrigin: strings.TrimRight(webappOrigin, "/")}
}

type template func(g *Generator, ctx Context) (*domain.Notification, error)

var templates = map[domain.NotificationType]template{
	domain.NotificationTypePostMention: postMention,
}

// Generate builds one notification per recipient of ret.Ctx.
func (g *Generator) Generate(ret HandlerReturn) ([]*domain.Notification, error) {
	tmpl, ok := templates[ret.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, ret.Type)
	}
	base, err := tmpl(g, ret.Ctx)
	if err != nil {
		return nil, err
	}

	recipients := ret.Ctx.Recipients()
	result := make([]*domain.Notification, 0, len(recipients))
	for _, userID := range recipients {
		n := *base
		n.UserID = userID
		n.Avatars = make([]*domain.NotificationAvatar, len(base.Avatars))
		for i, a := range base.Avatars {
			c := *a
			n.Avatars[i] = &c
		}
		result = append(result, &n)
	}
	return result, nil
}

func postMention(g *Generator, ctx Context) (*domain.Notification, error) {
	c, ok := ctx.(*PostContext)
	if !ok || c.Post == nil || c.Initiator == nil {
		return nil, fmt.Errorf("%w: post_mention needs a post and an initiator", ErrBadContext)
	}

	title := c.Post.Title
	return &domain.Notification{
		Type:          domain.NotificationTypePostMention,
		Icon:          IconComment,
		Title:         fmt.Sprintf("<b>%s</b> mentioned you in a post", html.EscapeString(c.Initiator.Name)),
		Description:   &title,
		TargetURL:     g.postURL(c.Post),
		ReferenceID:   c.Post.ID,
		ReferenceType: ReferenceTypePost,
		UniqueKey:     c.Initiator.ID,
		Public:        c.Source == nil || !c.Source.Private,
		Avatars:       []*domain.NotificationAvatar{g.userAvatar(c.Initiator)},
	}, nil
}

func (g *Generator) postURL(p *domain.Post) string {
	return g.webappOrigin + "/posts/" + p.ID
}

func (g *Generator) userAvatar(u *domain.User) *domain.NotificationAvatar {
	target := g.webappOrigin + "/" + u.ID
	if u.Username != nil && *u.Username != "" {
		target = g.webappOrigin + "/" + *u.Username
	}
	return &domain.NotificationAvatar{
		Type:        AvatarTypeUser,
		ReferenceID: u.ID,
		Name:        u.Name,
		Image:       u.Image,
		TargetURL:   target,
	}
}
