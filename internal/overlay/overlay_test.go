package overlay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidia/checkout-guard/internal/cart"
	"github.com/mvidia/checkout-guard/internal/detect"
)

type fakeSurface struct {
	mounted    bool
	markup     string
	visible    bool
	setVisible int
	toasts     []string
}

func (f *fakeSurface) Mount(context.Context) error { f.mounted = true; return nil }

func (f *fakeSurface) Update(_ context.Context, markup string) error {
	f.markup = markup
	return nil
}

func (f *fakeSurface) SetVisible(_ context.Context, visible bool) error {
	f.visible = visible
	f.setVisible++
	return nil
}

func (f *fakeSurface) Toast(_ context.Context, message, _ string) error {
	f.toasts = append(f.toasts, message)
	return nil
}

func TestBuildView(t *testing.T) {
	v := BuildView(1250, 87.50, "$", nil, "caption")
	assert.Equal(t, "$1,250.00", v.BalanceText)
	assert.Equal(t, "$87.50", v.TotalText)
	assert.Equal(t, "$1,162.50", v.ChipText)
	assert.False(t, v.ChipNegative)
	assert.Equal(t, "You'll have $1,162.50 left.", v.Tip)
	assert.InDelta(t, 0.07, v.Progress, 0.001)
}

func TestBuildViewOverspend(t *testing.T) {
	v := BuildView(100, 150, "$", nil, "")
	assert.True(t, v.ChipNegative)
	assert.Equal(t, "This puts you $50.00 below zero.", v.Tip)
	assert.InDelta(t, 1.0, v.Progress, 0.001)
}

func TestBuildViewBNPL(t *testing.T) {
	hint := &detect.PaymentHint{Type: "bnpl", Keyword: "klarna"}
	v := BuildView(500, 80, "$", hint, "")
	assert.Equal(t, "Installment plan detected", v.TotalText)
	assert.Equal(t, "Installments", v.ChipText)
	assert.True(t, v.ChipNegative)
	assert.Contains(t, v.Tip, "financed cost")
}

func TestViewHTMLEscapesHostileText(t *testing.T) {
	v := BuildView(10, 5, "$", nil, `<script>alert("x")</script>`)
	markup, err := v.HTML()
	require.NoError(t, err)
	assert.NotContains(t, markup, "<script>")
	assert.Contains(t, markup, "&lt;script&gt;")
}

func TestShowHideIdempotent(t *testing.T) {
	surface := &fakeSurface{}
	o := New(surface)
	ctx := context.Background()

	require.NoError(t, o.Show(ctx))
	require.NoError(t, o.Show(ctx))
	assert.True(t, o.Visible())
	assert.Equal(t, 1, surface.setVisible, "second show is a no-op")

	require.NoError(t, o.Hide(ctx))
	require.NoError(t, o.Hide(ctx))
	assert.False(t, o.Visible())
	assert.True(t, o.Dismissed())
	assert.Equal(t, 2, surface.setVisible, "second hide is a no-op")

	// showing again clears the dismissal
	require.NoError(t, o.Show(ctx))
	assert.False(t, o.Dismissed())
}

func TestHighestItemTitle(t *testing.T) {
	items := []cart.Item{
		{Title: "Cheap thing", Amount: 5},
		{Title: "Pricey thing", Amount: 80},
		{Title: ".cart { display: flex }", Amount: 999},
		{Title: "", Amount: 500},
	}
	assert.Equal(t, "Pricey thing", HighestItemTitle(items))
	assert.Equal(t, "", HighestItemTitle(nil))
}

func TestFallbackCaption(t *testing.T) {
	assert.Equal(t, "Tip: remove Pricey thing to stay on budget.", FallbackCaption(nil, "Pricey thing"))
	assert.Equal(t, "Review your cart before purchasing.", FallbackCaption(nil, ""))

	hint := &detect.PaymentHint{Type: "bnpl", Details: "4 payments of $20 with Klarna"}
	assert.Equal(t, "4 payments of $20 with Klarna", FallbackCaption(hint, "x"))
	assert.Equal(t, "Review the payment terms carefully.", FallbackCaption(&detect.PaymentHint{Type: "bnpl"}, ""))
}

func TestGoalCaption(t *testing.T) {
	// 500 - 100 leaves 400 a month, ceil(1000/400) = 3.
	assert.Equal(t,
		"Great! This purchase keeps you on track to reach your $1,000.00 savings goal in 3 months.",
		GoalCaption(1000, 500, 100, "$", "Pricey thing"))

	// 150 - 87.50 leaves 62.50, ceil(1000/62.50) = 16.
	assert.Equal(t,
		"This purchase is affordable, but you'll need 16 months to reach your $1,000.00 savings goal.",
		GoalCaption(1000, 150, 87.50, "$", ""))

	assert.Equal(t,
		"Warning: This purchase exceeds your monthly net income by $37.50. Consider removing Pricey thing to stay on track.",
		GoalCaption(1000, 50, 87.50, "$", "Pricey thing"))
	assert.Equal(t,
		"Warning: This purchase exceeds your monthly net income by $50.00. Consider removing an item to stay on track.",
		GoalCaption(1000, 50, 100, "$", ""))

	assert.Empty(t, GoalCaption(0, 500, 100, "$", ""))
	assert.Empty(t, GoalCaption(1000, 0, 100, "$", ""))
}
