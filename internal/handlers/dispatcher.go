package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/metrics"
	"sports_club_backend/internal/services"
	"sports_club_backend/pkg/utils"
)

// Context keys set by the auth gate.
const (
	ContextKeyAction         = "action"
	ContextKeyPayload        = "payload"
	ContextKeyRequestContext = "requestContext"
)

// ActionFunc executes one action. The returned value becomes the envelope data.
type ActionFunc func(c *gin.Context, rc *services.RequestContext, p Payload) (interface{}, error)

// Action describes how the auth gate treats an action.
type Action struct {
	Fn ActionFunc
	// Public actions only need a bearer token, checked against the club's API token when one is set.
	Public bool
	// Global actions work on the sports club registry instead of a club store.
	Global bool
	// Mutating actions need owner or editor access.
	Mutating bool
}

// Dispatcher maps action names to actions.
type Dispatcher struct {
	actions map[string]Action
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{actions: make(map[string]Action)}
}

// Register adds an action. Registering a name twice panics.
func (d *Dispatcher) Register(name string, a Action) {
	if _, dup := d.actions[name]; dup {
		panic("handlers: action registered twice: " + name)
	}
	d.actions[name] = a
}

// Lookup returns the action registered under name.
func (d *Dispatcher) Lookup(name string) (Action, bool) {
	a, ok := d.actions[name]
	return a, ok
}

// Names lists the registered actions in alphabetical order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.actions))
	for n := range d.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Handle runs the action the auth gate admitted and writes the envelope.
func (d *Dispatcher) Handle(c *gin.Context) {
	name := c.GetString(ContextKeyAction)
	action, ok := d.Lookup(name)
	if !ok {
		RespondError(c, UnknownAction(name))
		return
	}
	rc, _ := c.MustGet(ContextKeyRequestContext).(*services.RequestContext)
	payload, _ := c.MustGet(ContextKeyPayload).(Payload)

	start := time.Now()
	data, err := action.Fn(c, rc, payload)
	metrics.ActionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		RespondError(c, err)
		return
	}
	countAction(name, http.StatusOK)
	utils.RespondSuccess(c, data)
}

// UnknownAction is the error for an action name nobody registered.
func UnknownAction(name string) *utils.APIError {
	return utils.NewAPIError(http.StatusBadRequest, "Unknown action: "+name)
}
