package browser

import (
	"context"
	"time"
)

// Fake is a scriptable Page for tests. Visibility, texts and element sets
// are plain maps; OnClick/OnFill/OnNavigate hooks let a test mutate page
// state in response to the code under test, which is how multi-step dialog
// flows are simulated without timing.
type Fake struct {
	Visible  map[string]bool
	Texts    map[string]string
	Elements map[string][]*FakeElement
	Page     string // rendered markup returned by Content
	Location string

	ClickErrs map[string]error
	NavErr    error

	Clicks  []string
	Fills   map[string]string
	NavLog  []string
	Escapes int

	OnClick    func(sel string)
	OnFill     func(sel, text string)
	OnNavigate func(url string)
}

func NewFake() *Fake {
	return &Fake{
		Visible:   map[string]bool{},
		Texts:     map[string]string{},
		Elements:  map[string][]*FakeElement{},
		ClickErrs: map[string]error{},
		Fills:     map[string]string{},
	}
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if f.NavErr != nil {
		return f.NavErr
	}
	f.NavLog = append(f.NavLog, url)
	f.Location = url
	if f.OnNavigate != nil {
		f.OnNavigate(url)
	}
	return nil
}

func (f *Fake) URL(ctx context.Context) (string, error) { return f.Location, nil }

func (f *Fake) WaitVisible(ctx context.Context, sel string, timeout time.Duration) bool {
	return f.Visible[sel]
}

func (f *Fake) WaitGone(ctx context.Context, sel string, timeout time.Duration) bool {
	return !f.Visible[sel]
}

func (f *Fake) Click(ctx context.Context, sel string, force bool) error {
	if err := f.ClickErrs[sel]; err != nil {
		return err
	}
	f.Clicks = append(f.Clicks, sel)
	if f.OnClick != nil {
		f.OnClick(sel)
	}
	return nil
}

func (f *Fake) Fill(ctx context.Context, sel, text string) error {
	f.Fills[sel] = text
	if f.OnFill != nil {
		f.OnFill(sel, text)
	}
	return nil
}

func (f *Fake) Text(ctx context.Context, sel string) (string, error) {
	if t, ok := f.Texts[sel]; ok {
		return t, nil
	}
	return "", ErrNotFound
}

func (f *Fake) QueryAll(ctx context.Context, sel string) ([]Element, error) {
	els := f.Elements[sel]
	out := make([]Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

func (f *Fake) Content(ctx context.Context) (string, error) { return f.Page, nil }

func (f *Fake) PressEscape(ctx context.Context) error {
	f.Escapes++
	return nil
}

func (f *Fake) Clicked(sel string) bool {
	for _, c := range f.Clicks {
		if c == sel {
			return true
		}
	}
	return false
}

// FakeElement is the Element counterpart of Fake.
type FakeElement struct {
	TextVal  string
	Attrs    map[string]string
	Children map[string][]*FakeElement

	TextErr  error
	ClickErr error
	Clicks   int
	OnClick  func()
}

func (e *FakeElement) Text(ctx context.Context) (string, error) {
	return e.TextVal, e.TextErr
}

func (e *FakeElement) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *FakeElement) Attr(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *FakeElement) Query(ctx context.Context, sel string) ([]Element, error) {
	els := e.Children[sel]
	out := make([]Element, len(els))
	for i, c := range els {
		out[i] = c
	}
	return out, nil
}
