package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaobase/tenantd/pkg/pool"
	"github.com/yaobase/tenantd/pkg/resource"
	"github.com/yaobase/tenantd/pkg/tenant"
	"github.com/yaobase/tenantd/pkg/types"
)

type fixture struct {
	cpu  *resource.CPUManager
	reg  *tenant.Registry
	auth *Authenticator
	gate *Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cpu := resource.NewCPUManager()
	mem := resource.NewMemoryManager()
	disk := resource.NewDiskManager()
	mem.Initialize(8192)
	disk.Initialize(100)
	monitor := resource.NewMonitor(cpu, nil, time.Hour)
	pm := pool.NewManager()
	require.NoError(t, pm.Initialize(120, nil))
	t.Cleanup(pm.Shutdown)

	reg := tenant.NewRegistry(tenant.Deps{
		CPU: cpu, Memory: mem, Disk: disk, Monitor: monitor, Pool: pm,
	})

	auth := NewAuthenticator(reg)
	gate := NewGate(auth, reg, resource.NewCPUChecker(cpu, reg))
	return &fixture{cpu: cpu, reg: reg, auth: auth, gate: gate}
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Create("acme", types.Quotas{CPUPercent: 5}))

	assert.Equal(t, "acme", f.auth.Authenticate("alice@acme", "secret"))
}

func TestAuthenticateMalformedNames(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Create("t", types.Quotas{CPUPercent: 1}))

	tests := []struct {
		name  string
		input string
	}{
		{"empty user segment", "@t"},
		{"no at sign", "u"},
		{"empty string", ""},
		{"empty tenant segment", "u@"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, f.auth.Authenticate(tt.input, "secret"))
		})
	}
}

func TestAuthenticateSplitsAtFirstAt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Create("a@b", types.Quotas{CPUPercent: 1}))

	// "u@a@b" splits at the first '@': user "u", tenant "a@b".
	assert.Equal(t, "a@b", f.auth.Authenticate("u@a@b", ""))
}

func TestAuthenticateUnknownTenant(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.auth.Authenticate("alice@nowhere", "secret"))
}

func TestAuthenticateCredentialHook(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Create("acme", types.Quotas{CPUPercent: 5}))

	f.auth.SetCredentialFunc(func(user, tenantID, credential string) bool {
		return credential == "letmein"
	})

	assert.Empty(t, f.auth.Authenticate("alice@acme", "wrong"))
	assert.Equal(t, "acme", f.auth.Authenticate("alice@acme", "letmein"))
}

func TestAdmitAssemblesContext(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Create("acme", types.Quotas{CPUPercent: 5}))

	ctx, err := f.gate.Admit("alice@acme", "secret")
	require.NoError(t, err)
	require.NotNil(t, ctx)

	assert.NotEmpty(t, ctx.ID)
	assert.Equal(t, "acme", ctx.Tenant.TenantID())
	require.NotNil(t, ctx.Stats)
	assert.Zero(t, ctx.Stats.CPUSeconds())

	// Each admitted request owns a distinct context and sink.
	ctx2, err := f.gate.Admit("bob@acme", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, ctx.ID, ctx2.ID)
	assert.NotSame(t, ctx.Stats, ctx2.Stats)
	assert.Same(t, ctx.Tenant, ctx2.Tenant)
}

func TestAdmitDeniedByAuth(t *testing.T) {
	f := newFixture(t)
	_, err := f.gate.Admit("alice@nowhere", "secret")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestAdmitDeniedByQuota(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Create("acme", types.Quotas{CPUPercent: 5}))

	// 30% observed utilization exceeds the 5% quota.
	f.cpu.UpdateUsage("acme", 0.30)
	_, err := f.gate.Admit("alice@acme", "secret")
	assert.ErrorIs(t, err, ErrQuotaDenied)
}
