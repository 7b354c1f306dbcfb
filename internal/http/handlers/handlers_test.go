package handlers

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/policy"
	"github.com/tbourn/go-helpdesk-backend/internal/repo"
	"github.com/tbourn/go-helpdesk-backend/internal/services"
)

// ---- stubs to satisfy handlers.New() dependencies ----

type stubAuthSvc struct {
	login          func(ctx context.Context, email, password string) (*services.LoginResult, error)
	profile        func(ctx context.Context, userID uint) (*domain.User, error)
	changePassword func(ctx context.Context, userID uint, current, next string) error
}

func (s stubAuthSvc) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if s.login != nil {
		return s.login(ctx, email, password)
	}
	return nil, nil
}

func (s stubAuthSvc) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	if s.profile != nil {
		return s.profile(ctx, userID)
	}
	return nil, nil
}

func (s stubAuthSvc) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if s.changePassword != nil {
		return s.changePassword(ctx, userID, current, next)
	}
	return nil
}

type stubUserSvc struct {
	createClient func(ctx context.Context, name, email string) (*services.ProvisionedUser, error)
	create       func(ctx context.Context, name, email string, role domain.Role) (*services.ProvisionedUser, error)
	get          func(ctx context.Context, id uint) (*domain.User, error)
	list         func(ctx context.Context) ([]domain.User, error)
	listAgents   func(ctx context.Context) ([]domain.User, error)
	update       func(ctx context.Context, id uint, name, email string, role domain.Role) (*domain.User, error)
	delete       func(ctx context.Context, id uint) error
}

func (s stubUserSvc) CreateClient(ctx context.Context, name, email string) (*services.ProvisionedUser, error) {
	if s.createClient != nil {
		return s.createClient(ctx, name, email)
	}
	return nil, nil
}

func (s stubUserSvc) Create(ctx context.Context, name, email string, role domain.Role) (*services.ProvisionedUser, error) {
	if s.create != nil {
		return s.create(ctx, name, email, role)
	}
	return nil, nil
}

func (s stubUserSvc) Get(ctx context.Context, id uint) (*domain.User, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return nil, nil
}

func (s stubUserSvc) List(ctx context.Context) ([]domain.User, error) {
	if s.list != nil {
		return s.list(ctx)
	}
	return nil, nil
}

func (s stubUserSvc) ListAgents(ctx context.Context) ([]domain.User, error) {
	if s.listAgents != nil {
		return s.listAgents(ctx)
	}
	return nil, nil
}

func (s stubUserSvc) Update(ctx context.Context, id uint, name, email string, role domain.Role) (*domain.User, error) {
	if s.update != nil {
		return s.update(ctx, id, name, email, role)
	}
	return nil, nil
}

func (s stubUserSvc) Delete(ctx context.Context, id uint) error {
	if s.delete != nil {
		return s.delete(ctx, id)
	}
	return nil
}

type stubTicketSvc struct {
	create       func(ctx context.Context, actor policy.Actor, in services.CreateInput) (*domain.Ticket, error)
	list         func(ctx context.Context, actor policy.Actor, scope policy.ListScope) ([]repo.TicketWithClient, error)
	get          func(ctx context.Context, actor policy.Actor, id uint) (*services.TicketDetail, error)
	update       func(ctx context.Context, actor policy.Actor, id uint, in services.UpdateInput) (*domain.Ticket, error)
	statusCounts func(ctx context.Context) (map[domain.Status]int64, error)
}

func (s stubTicketSvc) Create(ctx context.Context, actor policy.Actor, in services.CreateInput) (*domain.Ticket, error) {
	if s.create != nil {
		return s.create(ctx, actor, in)
	}
	return nil, nil
}

func (s stubTicketSvc) List(ctx context.Context, actor policy.Actor, scope policy.ListScope) ([]repo.TicketWithClient, error) {
	if s.list != nil {
		return s.list(ctx, actor, scope)
	}
	return nil, nil
}

func (s stubTicketSvc) Get(ctx context.Context, actor policy.Actor, id uint) (*services.TicketDetail, error) {
	if s.get != nil {
		return s.get(ctx, actor, id)
	}
	return nil, nil
}

func (s stubTicketSvc) Update(ctx context.Context, actor policy.Actor, id uint, in services.UpdateInput) (*domain.Ticket, error) {
	if s.update != nil {
		return s.update(ctx, actor, id, in)
	}
	return nil, nil
}

func (s stubTicketSvc) StatusCounts(ctx context.Context) (map[domain.Status]int64, error) {
	if s.statusCounts != nil {
		return s.statusCounts(ctx)
	}
	return nil, nil
}

type stubCommentSvc struct {
	create        func(ctx context.Context, actor policy.Actor, ticketID uint, content string, isPrivate bool) (*domain.Comment, error)
	listForTicket func(ctx context.Context, actor policy.Actor, ticketID uint) ([]domain.Comment, error)
	getByID       func(ctx context.Context, id uint) (*domain.Comment, error)
}

func (s stubCommentSvc) Create(ctx context.Context, actor policy.Actor, ticketID uint, content string, isPrivate bool) (*domain.Comment, error) {
	if s.create != nil {
		return s.create(ctx, actor, ticketID, content, isPrivate)
	}
	return nil, nil
}

func (s stubCommentSvc) ListForTicket(ctx context.Context, actor policy.Actor, ticketID uint) ([]domain.Comment, error) {
	if s.listForTicket != nil {
		return s.listForTicket(ctx, actor, ticketID)
	}
	return nil, nil
}

func (s stubCommentSvc) GetByID(ctx context.Context, id uint) (*domain.Comment, error) {
	if s.getByID != nil {
		return s.getByID(ctx, id)
	}
	return nil, nil
}

// ---- helpers ----

// withActor simulates the auth middleware by stashing a verified actor, the
// same way RequireAuth does in production.
func withActor(a policy.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("actor", a)
		c.Next()
	}
}

func newTestHandlers(auth AuthService, user UserService, ticket TicketService, comment CommentService) *Handlers {
	return New(auth, user, ticket, comment)
}

func testEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return gin.New()
}
