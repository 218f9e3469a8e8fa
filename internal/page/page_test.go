package page_test

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/luispater/pagechain/internal/browser"
	"github.com/luispater/pagechain/internal/browser/browsertest"
	"github.com/luispater/pagechain/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	btnStart  = browser.ID("start")
	btnFinish = browser.Name("Finish")
	txtDone   = browser.CSS("p.done")
)

const (
	siteStart  = "http://site/start"
	siteFinish = "http://site/finish"
	siteDone   = "http://site/done"
)

var errRefused = errors.New("refused")

type StartPage struct{ *page.Base }
type FinishPage struct{ *page.Base }
type DonePage struct{ *page.Base }

func startPage(successor page.Key) page.Descriptor {
	return page.Define("StartPage", successor, page.Locators{"btnStart": btnStart},
		func(b *page.Base) *StartPage { return &StartPage{b} },
		func(ctx context.Context, p *StartPage, c page.Chain) error {
			return p.Click(ctx, "btnStart")
		})
}

func finishPage() page.Descriptor {
	return page.Define("FinishPage", "DonePage", page.Locators{"btnFinish": btnFinish},
		func(b *page.Base) *FinishPage { return &FinishPage{b} },
		func(ctx context.Context, p *FinishPage, c page.Chain) error {
			if c.String("refuse") != "" {
				return errRefused
			}
			return p.Click(ctx, "btnFinish")
		})
}

func donePage() page.Descriptor {
	return page.Define("DonePage", "", page.Locators{"txtDone": txtDone},
		func(b *page.Base) *DonePage { return &DonePage{b} }, nil)
}

func newSite() *browsertest.Driver {
	return browsertest.NewDriver(map[string]*browsertest.Screen{
		siteStart: {
			Title:    "Start - Google",
			Elements: []browser.Locator{btnStart},
			OnClick: map[browser.Locator]browsertest.ClickFunc{
				btnStart: func(d *browsertest.Driver) error { return d.Go(siteFinish) },
			},
		},
		siteFinish: {
			Title:    "Finish",
			Elements: []browser.Locator{btnFinish},
			OnClick: map[browser.Locator]browsertest.ClickFunc{
				btnFinish: func(d *browsertest.Driver) error { return d.Go(siteDone) },
			},
		},
		siteDone: {
			Title:    "Done",
			Elements: []browser.Locator{txtDone},
			Texts:    map[browser.Locator]string{txtDone: "all done"},
		},
	})
}

func newRegistry(t *testing.T) *page.Registry {
	t.Helper()
	r := page.NewRegistry()
	require.NoError(t, r.RegisterAll(startPage("FinishPage"), finishPage(), donePage(), page.TitleCheckerPage()))
	require.NoError(t, r.Validate())
	return r
}

func params(d browser.Driver) page.Params {
	return page.Params{
		page.ParamDriver:        d,
		page.ParamURL:           siteStart,
		page.ParamTimeout:       1,
		page.ParamScreenshotDir: "-",
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := newRegistry(t)
	before, err := r.Resolve("FinishPage")
	require.NoError(t, err)

	require.NoError(t, r.Register(finishPage()))
	after, err := r.Resolve("FinishPage")
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Len(t, r.Keys(), 4)
}

func TestRegisterRejectsDifferentConstructor(t *testing.T) {
	r := newRegistry(t)
	other := page.Define("FinishPage", "DonePage", nil,
		func(b *page.Base) *FinishPage { return &FinishPage{Base: b} }, nil)

	err := r.Register(other)
	var dup *page.DuplicatePageError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, page.Key("FinishPage"), dup.Key)
}

type TaggedPage struct {
	*page.Base
	tag string
}

func taggedPage(tag string) page.Descriptor {
	return page.Define("TaggedPage", "", nil,
		func(b *page.Base) *TaggedPage { return &TaggedPage{Base: b, tag: tag} }, nil)
}

func TestRegisterComparesConstructorLiteral(t *testing.T) {
	r := page.NewRegistry()
	require.NoError(t, r.Register(taggedPage("first")))
	require.NoError(t, r.Register(taggedPage("second")))
	assert.Equal(t, []page.Key{"TaggedPage"}, r.Keys())

	p, err := r.Open(context.Background(), "TaggedPage", page.Params{page.ParamDriver: newSite(), page.ParamURL: siteDone, page.ParamScreenshotDir: "-"})
	require.NoError(t, err)
	assert.Equal(t, "first", p.(*TaggedPage).tag)
}

func TestRegisterRejectsIncompleteDescriptor(t *testing.T) {
	r := page.NewRegistry()
	assert.ErrorIs(t, r.Register(page.Descriptor{Key: "Empty"}), page.ErrInvalidDescriptor)
	assert.ErrorIs(t, r.Register(page.Define[*DonePage]("", "", nil, func(b *page.Base) *DonePage { return &DonePage{b} }, nil)), page.ErrInvalidDescriptor)
}

func TestValidateReportsUnregisteredSuccessor(t *testing.T) {
	r := page.NewRegistry()
	require.NoError(t, r.Register(startPage("Nowhere")))

	var unknown *page.UnknownPageError
	require.ErrorAs(t, r.Validate(), &unknown)
	assert.Equal(t, page.Key("Nowhere"), unknown.Key)
}

func TestResolveUnknownPage(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Resolve("Altavista")
	var unknown *page.UnknownPageError
	require.ErrorAs(t, err, &unknown)

	_, err = r.Open(context.Background(), "Altavista", params(newSite()))
	require.ErrorAs(t, err, &unknown)
}

func TestKeyFor(t *testing.T) {
	r := newRegistry(t)
	key, ok := page.KeyFor[*FinishPage](r)
	assert.True(t, ok)
	assert.Equal(t, page.Key("FinishPage"), key)

	_, ok = page.KeyFor[*page.TitleChecker](page.NewRegistry())
	assert.False(t, ok)
}

func TestAdvanceYieldsRegisteredSuccessor(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	start, err := page.Start[*StartPage](ctx, r, params(newSite()))
	require.NoError(t, err)

	for _, d := range r.Descriptors() {
		if d.Terminal() {
			continue
		}
		succ, err := r.Resolve(d.Successor)
		require.NoError(t, err)
		assert.NotEqual(t, d.Type(), succ.Type())
	}

	next, err := start.Advance(ctx, nil)
	require.NoError(t, err)
	require.IsType(t, &FinishPage{}, next)

	last, err := next.Advance(ctx, nil)
	require.NoError(t, err)
	succ, _ := r.Resolve("DonePage")
	assert.Equal(t, succ.Type(), reflect.TypeOf(last))
}

func TestChainPropagation(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	p := params(newSite())
	p["username"] = "user"

	start, err := page.Start[*StartPage](ctx, r, p)
	require.NoError(t, err)
	assert.False(t, start.Chain().Has(page.ParamURL))
	assert.Equal(t, "user", start.Chain().String("username"))

	finish, err := page.Next[*FinishPage](ctx, start, page.Params{
		"password":    "pass",
		page.ParamURL: "http://elsewhere",
	})
	require.NoError(t, err)
	assert.Equal(t, "user", finish.Chain().String("username"))
	assert.Equal(t, "pass", finish.Chain().String("password"))
	assert.False(t, finish.Chain().Has(page.ParamURL))
	assert.Same(t, start.Driver(), finish.Driver())

	// earlier pages keep their own snapshot
	assert.False(t, start.Chain().Has("password"))

	done, err := page.Next[*DonePage](ctx, finish, page.Params{"username": "other"})
	require.NoError(t, err)
	assert.Equal(t, "other", done.Chain().String("username"))
	assert.Equal(t, "pass", done.Chain().String("password"))
}

func TestNextRejectsWrongSuccessorType(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	d := newSite()

	start, err := page.Start[*StartPage](ctx, r, params(d))
	require.NoError(t, err)

	_, err = page.Next[*DonePage](ctx, start, nil)
	var mismatch *page.SuccessorMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, page.Key("StartPage"), mismatch.From)
	assert.Equal(t, []string{"navigate " + siteStart}, d.Actions())
}

func TestActionFailureConstructsNothing(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	d := newSite()

	start, err := page.Start[*StartPage](ctx, r, params(d))
	require.NoError(t, err)
	finish, err := page.Next[*FinishPage](ctx, start, nil)
	require.NoError(t, err)

	next, err := finish.Advance(ctx, page.Params{"refuse": true})
	assert.Nil(t, next)
	var failure *page.ActionFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, page.Key("FinishPage"), failure.Page)
	assert.Equal(t, siteFinish, failure.URL)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, siteFinish, d.Current())
}

func TestUnknownSuccessorBeforeAction(t *testing.T) {
	r := page.NewRegistry()
	require.NoError(t, r.Register(startPage("Nowhere")))
	ctx := context.Background()
	d := newSite()

	start, err := r.Open(ctx, "StartPage", params(d))
	require.NoError(t, err)

	_, err = start.Advance(ctx, nil)
	var unknown *page.UnknownPageError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, page.Key("Nowhere"), unknown.Key)
	assert.Equal(t, []string{"navigate " + siteStart}, d.Actions())
}

func TestTerminalPage(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	start, err := page.Start[*StartPage](ctx, r, params(newSite()))
	require.NoError(t, err)
	done, err := page.Walk(ctx, start, nil, nil)
	require.NoError(t, err)
	require.IsType(t, &DonePage{}, done)

	text, err := done.(*DonePage).Text(ctx, "txtDone")
	require.NoError(t, err)
	assert.Equal(t, "all done", text)

	_, err = done.Advance(ctx, nil)
	assert.ErrorIs(t, err, page.ErrTerminalPage)
	_, err = page.Walk(ctx, done, nil)
	assert.ErrorIs(t, err, page.ErrTerminalPage)
}

func TestWalkFromNilPage(t *testing.T) {
	ctx := context.Background()
	_, err := page.Walk(ctx, nil, nil)
	assert.ErrorIs(t, err, page.ErrInvalidDescriptor)

	var missing *StartPage
	_, err = page.Walk(ctx, missing)
	assert.ErrorIs(t, err, page.ErrInvalidDescriptor)
}

func TestTitleMismatch(t *testing.T) {
	r := newRegistry(t)
	dir := t.TempDir()

	start := time.Now()
	_, err := page.Start[*page.TitleChecker](context.Background(), r, page.Params{
		page.ParamDriver:            newSite(),
		page.ParamURL:               siteStart,
		page.ParamWaitTitleContains: "Altavista",
		page.ParamTimeout:           2,
		page.ParamScreenshotDir:     dir,
	})
	elapsed := time.Since(start)

	var mismatch *page.TitleMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Altavista", mismatch.Expected)
	assert.Equal(t, "Start - Google", mismatch.Title)
	assert.Equal(t, siteStart, mismatch.URL)
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
	assert.Less(t, elapsed, 3*time.Second)

	require.NotEmpty(t, mismatch.Screenshot)
	_, err = os.Stat(mismatch.Screenshot)
	assert.NoError(t, err)
}

func TestTitleChecker(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	p := params(newSite())
	p[page.ParamWaitTitleContains] = "Google"

	checker, err := page.Start[*page.TitleChecker](ctx, r, p)
	require.NoError(t, err)
	ok, err := checker.Contains(ctx, "Start")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, checker.Chain().Has(page.ParamWaitTitleContains))
}

func TestPageNotLoaded(t *testing.T) {
	r := newRegistry(t)
	p := params(newSite())
	p[page.ParamTimeout] = 0.1

	_, err := r.Open(context.Background(), "DonePage", p)
	var notLoaded *page.PageNotLoadedError
	require.ErrorAs(t, err, &notLoaded)
	assert.Equal(t, []string{"txtDone"}, notLoaded.Missing)
	assert.Equal(t, siteStart, notLoaded.URL)
	assert.Empty(t, notLoaded.Screenshot)
}

func TestConstructionNeedsDriver(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Open(context.Background(), "StartPage", page.Params{page.ParamURL: siteStart})
	assert.ErrorIs(t, err, page.ErrNoDriver)
}

func TestInvalidOptions(t *testing.T) {
	r := newRegistry(t)
	for name, value := range map[string]any{
		page.ParamTimeout:        "soon",
		page.ParamHighlight:      "maybe",
		page.ParamAnimationDelay: -1,
	} {
		t.Run(name, func(t *testing.T) {
			p := params(newSite())
			p[name] = value
			_, err := r.Open(context.Background(), "StartPage", p)
			assert.ErrorIs(t, err, page.ErrInvalidOption)
		})
	}
}

func TestUnknownElement(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	start, err := page.Start[*StartPage](ctx, r, params(newSite()))
	require.NoError(t, err)

	assert.ErrorIs(t, start.Click(ctx, "btnFinish"), page.ErrUnknownElement)
	_, err = start.Field(ctx, "btnStart")
	assert.NoError(t, err)
}
