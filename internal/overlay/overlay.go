package overlay

import (
	"context"
	"sync"
)

// Surface is the page-side half of the overlay: something that can
// mount the shadow host, swap the card markup, toggle visibility and
// flash a toast. The chromedp implementation lives with the controller;
// tests use a fake.
type Surface interface {
	Mount(ctx context.Context) error
	Update(ctx context.Context, markup string) error
	SetVisible(ctx context.Context, visible bool) error
	Toast(ctx context.Context, message, tone string) error
}

// Overlay owns the show/hide state machine. It is created once per page
// session and mutated by the controller; focus capture and restoration
// happen page-side in the injected surface script.
type Overlay struct {
	mu        sync.Mutex
	surface   Surface
	visible   bool
	dismissed bool
}

// New wraps a surface. Mount must be called before Update/Show.
func New(surface Surface) *Overlay {
	return &Overlay{surface: surface}
}

// Mount installs the shadow host into the page.
func (o *Overlay) Mount(ctx context.Context) error {
	return o.surface.Mount(ctx)
}

// Update re-renders the card from a view. The card is updated even
// while hidden so a later Show presents current numbers.
func (o *Overlay) Update(ctx context.Context, v View) error {
	markup, err := v.HTML()
	if err != nil {
		return err
	}
	return o.surface.Update(ctx, markup)
}

// Show makes the overlay visible. Showing while visible is a no-op.
func (o *Overlay) Show(ctx context.Context) error {
	o.mu.Lock()
	if o.visible {
		o.mu.Unlock()
		return nil
	}
	o.visible = true
	o.dismissed = false
	o.mu.Unlock()
	return o.surface.SetVisible(ctx, true)
}

// Hide removes the overlay and marks it dismissed, so it stays away
// until the total changes or an update is forced. Hiding while hidden
// is a no-op.
func (o *Overlay) Hide(ctx context.Context) error {
	o.mu.Lock()
	if !o.visible {
		o.dismissed = true
		o.mu.Unlock()
		return nil
	}
	o.visible = false
	o.dismissed = true
	o.mu.Unlock()
	return o.surface.SetVisible(ctx, false)
}

// Visible reports whether the overlay is currently shown.
func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// Dismissed reports whether the last hide is still in effect.
func (o *Overlay) Dismissed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dismissed
}

// Toast flashes a transient message on the page.
func (o *Overlay) Toast(ctx context.Context, message, tone string) error {
	return o.surface.Toast(ctx, message, tone)
}
