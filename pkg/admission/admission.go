package admission

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yaobase/tenantd/pkg/log"
	"github.com/yaobase/tenantd/pkg/resource"
	"github.com/yaobase/tenantd/pkg/tenant"
)

var (
	// ErrAuthFailed is returned when the user@tenant name does not
	// resolve to a live tenant or the credential hook rejects it.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrQuotaDenied is returned when the tenant's CPU quota check
	// fails at admission.
	ErrQuotaDenied = errors.New("cpu quota exceeded")
)

// CredentialFunc validates a credential for the given user and tenant.
// It is the single point where external credential validation hooks in;
// the default accepts everything.
type CredentialFunc func(user, tenantID, credential string) bool

// Authenticator resolves user@tenant names against the registry
type Authenticator struct {
	registry    *tenant.Registry
	credentials CredentialFunc
	logger      zerolog.Logger
}

// NewAuthenticator returns an authenticator over the registry with the
// default accept-all credential hook.
func NewAuthenticator(registry *tenant.Registry) *Authenticator {
	return &Authenticator{
		registry: registry,
		logger:   log.Component("authenticator"),
	}
}

// SetCredentialFunc installs the credential validation hook
func (a *Authenticator) SetCredentialFunc(fn CredentialFunc) {
	a.credentials = fn
}

// Authenticate splits userAtTenant at the first '@' and verifies the
// tenant exists. It returns the parsed tenant id on success and the
// empty string on any failure: absent '@', empty user segment, empty
// tenant segment, unknown tenant, or a rejected credential.
func (a *Authenticator) Authenticate(userAtTenant, credential string) string {
	at := strings.IndexByte(userAtTenant, '@')
	if at < 0 {
		return ""
	}
	user := userAtTenant[:at]
	tenantID := userAtTenant[at+1:]
	if user == "" || tenantID == "" {
		return ""
	}

	if a.registry.Get(tenantID) == nil {
		a.logger.Debug().Str("tenant_id", tenantID).Msg("Authentication against unknown tenant")
		return ""
	}
	if a.credentials != nil && !a.credentials(user, tenantID, credential) {
		a.logger.Debug().Str("tenant_id", tenantID).Str("user", user).Msg("Credential rejected")
		return ""
	}
	return tenantID
}

// RequestContext bundles everything a request carries through the
// system: a shared reference to its tenant and an exclusively owned
// statistics sink.
type RequestContext struct {
	ID     string
	Tenant *tenant.Tenant
	Stats  *resource.BasicStats
}

// Gate is the per-request admission gate composed of the authenticator
// and the CPU quota check.
type Gate struct {
	auth     *Authenticator
	registry *tenant.Registry
	cpu      *resource.CPUChecker
	logger   zerolog.Logger
}

// NewGate returns an admission gate
func NewGate(auth *Authenticator, registry *tenant.Registry, cpu *resource.CPUChecker) *Gate {
	return &Gate{
		auth:     auth,
		registry: registry,
		cpu:      cpu,
		logger:   log.Component("admission"),
	}
}

// Admit authenticates the caller, checks the tenant's CPU quota, and on
// success assembles a fresh request context.
func (g *Gate) Admit(userAtTenant, credential string) (*RequestContext, error) {
	tenantID := g.auth.Authenticate(userAtTenant, credential)
	if tenantID == "" {
		return nil, ErrAuthFailed
	}

	if !g.cpu.CheckQuota(tenantID) {
		g.logger.Warn().Str("tenant_id", tenantID).Msg("Request denied by CPU quota")
		return nil, ErrQuotaDenied
	}

	handle := g.registry.Get(tenantID)
	if handle == nil {
		// The tenant vanished between the auth and quota checks.
		return nil, ErrAuthFailed
	}

	return &RequestContext{
		ID:     uuid.New().String(),
		Tenant: handle,
		Stats:  resource.NewBasicStats(),
	}, nil
}
