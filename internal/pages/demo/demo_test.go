package demo_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/luispater/pagechain/internal/browser/browsertest"
	"github.com/luispater/pagechain/internal/page"
	"github.com/luispater/pagechain/internal/pages"
	"github.com/luispater/pagechain/internal/pages/demo"
	"github.com/luispater/pagechain/internal/pages/demo/demotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T, extra page.Params) (*demo.LoginUsernamePage, *browsertest.Driver) {
	t.Helper()
	r, err := pages.NewRegistry()
	require.NoError(t, err)

	d := demotest.NewSite("user", "pass")
	params := page.Params{
		page.ParamDriver:        d,
		page.ParamURL:           demotest.URL(demo.PathLoginUser),
		page.ParamTimeout:       1,
		page.ParamHighlight:     false,
		page.ParamScreenshotDir: "-",
	}
	for k, v := range extra {
		params[k] = v
	}
	login, err := demo.Open(context.Background(), r, params)
	require.NoError(t, err)
	return login, d
}

func TestCycleClosure(t *testing.T) {
	ctx := context.Background()
	login, d := start(t, nil)

	p, err := page.Walk(ctx, login,
		page.Params{demo.ParamUsername: "user"},
		page.Params{demo.ParamPassword: "pass"},
		nil,
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(login), reflect.TypeOf(p))
	assert.Equal(t, demo.LoginPageUsername, p.Key())
	assert.Equal(t, demotest.URL(demo.PathLoginUser), d.Current())
}

func TestEveryAdvanceYieldsItsSuccessor(t *testing.T) {
	ctx := context.Background()
	login, _ := start(t, page.Params{demo.ParamUsername: "user", demo.ParamPassword: "pass"})
	r := login.Registry()

	var p page.Page = login
	for range 4 {
		want, err := r.Resolve(p.Descriptor().Successor)
		require.NoError(t, err)
		next, err := p.Advance(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, want.Type(), reflect.TypeOf(next))
		p = next
	}
}

func TestChainPropagation(t *testing.T) {
	ctx := context.Background()
	login, _ := start(t, page.Params{demo.ParamUsername: "user"})
	assert.False(t, login.Chain().Has(page.ParamURL))

	password, err := page.Next[*demo.LoginPasswordPage](ctx, login, page.Params{demo.ParamPassword: "pass"})
	require.NoError(t, err)
	assert.Equal(t, "user", password.Chain().String(demo.ParamUsername))
	assert.Equal(t, "pass", password.Chain().String(demo.ParamPassword))
	assert.False(t, password.Chain().Has(page.ParamURL))

	home, err := password.Next(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "pass", home.Chain().String(demo.ParamPassword))
	assert.False(t, home.Chain().Has(page.ParamURL))
}

func TestLoginToProfileMatchesManualAdvances(t *testing.T) {
	ctx := context.Background()

	composed, composedDriver := start(t, nil)
	profile, err := composed.LoginToProfile(ctx, "user", "pass")
	require.NoError(t, err)

	manual, manualDriver := start(t, nil)
	p, err := manual.Advance(ctx, page.Params{demo.ParamUsername: "user"})
	require.NoError(t, err)
	p, err = p.Advance(ctx, page.Params{demo.ParamPassword: "pass"})
	require.NoError(t, err)
	p, err = p.Advance(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, reflect.TypeOf(p), reflect.TypeOf(profile))
	assert.Equal(t, p.Chain().Keys(), profile.Chain().Keys())
	for _, key := range []string{demo.ParamUsername, demo.ParamPassword, page.ParamTimeout, page.ParamHighlight} {
		assert.Equal(t, p.Chain().String(key), profile.Chain().String(key), key)
	}
	assert.Equal(t, manualDriver.Actions(), composedDriver.Actions())
	assert.Equal(t, demotest.URL(demo.PathProfile), composedDriver.Current())
}

func TestLoginAndLogout(t *testing.T) {
	ctx := context.Background()
	login, d := start(t, nil)

	again, err := login.LoginAndLogout(ctx, "user", "pass")
	require.NoError(t, err)
	assert.NotSame(t, login, again)
	assert.Equal(t, demotest.URL(demo.PathLoginUser), d.Current())
	assert.Equal(t, []string{
		"navigate " + demotest.URL(demo.PathLoginUser),
		"type id=usernameOrEmail user",
		"click name=Continue",
		"type id=password pass",
		"click name=LogIn",
		"click name=Profile",
		"click name=LogOut",
	}, d.Actions())

	// credentials stay in the chain, so the cycle can run again without them
	again, err = again.LoginAndLogout(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, demo.LoginPageUsername, again.Key())
}

func TestRejectedLoginFailsTheAdvance(t *testing.T) {
	ctx := context.Background()
	login, d := start(t, nil)

	profile, err := login.LoginToProfile(ctx, "user", "wrong")
	assert.Nil(t, profile)

	var failure *page.ActionFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, demo.LoginPagePassword, failure.Page)
	assert.Equal(t, demotest.URL(demo.PathLoginPassword), failure.URL)
	assert.ErrorIs(t, err, demo.ErrLoginRejected)
	assert.Contains(t, err.Error(), demotest.LoginErrorText)
	assert.Equal(t, demotest.URL(demo.PathLoginPassword), d.Current())
}
