package sync

import (
	httpapp "crmbridge_backend/internal/http"
	"crmbridge_backend/platform/httpkit"
)

// Module bundles the sync feature for HTTP route registration.
type Module struct {
	handler *Handler
	token   string
}

// NewModule creates the sync module.
func NewModule(handler *Handler, token string) *Module {
	return &Module{handler: handler, token: token}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "sync" }

// RegisterRoutes mounts the CRM webhook endpoint behind token auth.
func (m *Module) RegisterRoutes(rc *httpapp.RouterContext) {
	grp := rc.V1.Group("", httpkit.TokenAuth(m.token))
	m.handler.Register(grp)
}
