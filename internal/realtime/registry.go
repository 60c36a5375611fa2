// Package realtime tracks live client connections and their topic
// memberships on the event bus.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"floorsync-system/internal/domain"
	"floorsync-system/internal/events"
	"floorsync-system/internal/utils"
)

type TokenParser interface {
	ParseToken(token string) (*utils.Claims, error)
}

// Subscriptions is the part of the event bus the registry drives.
type Subscriptions interface {
	Attach(id string, sink events.Sink) error
	Detach(id string)
	Subscribe(id string, topic domain.Topic) error
	Unsubscribe(id string, topic domain.Topic) error
}

type Identity struct {
	EmployeeID   string
	Email        string
	RestaurantID string
	Role         string
}

type Connection struct {
	ID           string
	Identity     Identity
	RestaurantID string

	mu     sync.Mutex
	scopes map[domain.Scope]struct{}
}

// Scopes returns the subscopes the connection has joined besides the
// general restaurant topic.
func (c *Connection) Scopes() []domain.Scope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Scope, 0, len(c.scopes))
	for s := range c.scopes {
		out = append(out, s)
	}
	return out
}

type Registry struct {
	bus    Subscriptions
	tokens TokenParser
	log    *slog.Logger

	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewRegistry(bus Subscriptions, tokens TokenParser, log *slog.Logger) *Registry {
	return &Registry{
		bus:    bus,
		tokens: tokens,
		log:    log.With("component", "registry"),
		conns:  map[string]*Connection{},
	}
}

// Authenticate verifies the token for a connection scoped to
// restaurantID. A token issued for another restaurant is rejected.
func (r *Registry) Authenticate(token, restaurantID string) (Identity, error) {
	if restaurantID == "" {
		return Identity{}, domain.Validation("restaurantId is required")
	}
	claims, err := r.tokens.ParseToken(token)
	if err != nil {
		return Identity{}, domain.Unauthenticated(err)
	}
	if claims.RestaurantID != "" && claims.RestaurantID != restaurantID {
		return Identity{}, &domain.Error{
			Kind:    domain.KindAuthentication,
			Message: "token is not valid for this restaurant",
		}
	}
	return Identity{
		EmployeeID:   claims.EmployeeID,
		Email:        claims.Email,
		RestaurantID: restaurantID,
		Role:         claims.Role,
	}, nil
}

// Register attaches an authenticated connection and joins it to the
// general restaurant topic.
func (r *Registry) Register(id Identity, sink events.Sink) (*Connection, error) {
	conn := &Connection{
		ID:           uuid.NewString(),
		Identity:     id,
		RestaurantID: id.RestaurantID,
		scopes:       map[domain.Scope]struct{}{},
	}
	if err := r.bus.Attach(conn.ID, sink); err != nil {
		return nil, domain.Internal("attach connection", err)
	}
	if err := r.bus.Subscribe(conn.ID, domain.GeneralTopic(conn.RestaurantID)); err != nil {
		r.bus.Detach(conn.ID)
		return nil, domain.Internal("join restaurant", err)
	}

	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()

	r.log.Info("client connected",
		"connection_id", conn.ID, "restaurant_id", conn.RestaurantID, "employee_id", id.EmployeeID)
	return conn, nil
}

// Connect authenticates and registers in one step.
func (r *Registry) Connect(token, restaurantID string, sink events.Sink) (*Connection, error) {
	id, err := r.Authenticate(token, restaurantID)
	if err != nil {
		return nil, err
	}
	return r.Register(id, sink)
}

func (r *Registry) get(connID string) (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return nil, domain.NotFound("connection", connID)
	}
	return c, nil
}

func (r *Registry) Join(connID string, scope domain.Scope) error {
	c, err := r.get(connID)
	if err != nil {
		return err
	}
	if scope == domain.ScopeGeneral {
		return nil
	}
	if err := r.bus.Subscribe(connID, domain.TopicFor(c.RestaurantID, scope)); err != nil {
		return domain.Internal("join scope", err)
	}
	c.mu.Lock()
	c.scopes[scope] = struct{}{}
	c.mu.Unlock()
	r.log.Debug("joined scope", "connection_id", connID, "scope", scope)
	return nil
}

func (r *Registry) Leave(connID string, scope domain.Scope) error {
	c, err := r.get(connID)
	if err != nil {
		return err
	}
	if scope == domain.ScopeGeneral {
		return domain.Validation("the restaurant topic cannot be left while connected")
	}
	if err := r.bus.Unsubscribe(connID, domain.TopicFor(c.RestaurantID, scope)); err != nil {
		return domain.Internal("leave scope", err)
	}
	c.mu.Lock()
	delete(c.scopes, scope)
	c.mu.Unlock()
	return nil
}

// Disconnect removes every membership of the connection. Calling it
// twice is harmless.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.bus.Detach(connID)
	r.log.Info("client disconnected", "connection_id", connID, "restaurant_id", c.RestaurantID)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
