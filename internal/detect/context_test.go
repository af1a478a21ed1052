package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidia/checkout-guard/internal/page"
)

const cartPage = `<html><head><title>Your Cart - Example Shop</title></head><body>
<div id="cart-root">
  <h1>Shopping Cart</h1>
  <ul>
    <li class="cart-item"><a href="/p/1">Widget Pro Max with telescoping aluminum handle</a><span class="price">$20.00</span><input name="quantity" value="2"></li>
    <li class="cart-item"><a href="/p/2">Gadget Deluxe rechargeable travel edition</a><span class="price">$25.00</span></li>
    <li class="cart-item"><a href="/p/3">Gizmo Classic weatherproof outdoor cover</a><span class="price">$22.50</span></li>
  </ul>
  <div id="order-total">Order total: $87.50</div>
  <button name="checkout">Proceed to checkout</button>
</div>
</body></html>`

func parseSnap(t *testing.T, rawURL, title, markup string) *page.Snapshot {
	t.Helper()
	snap, err := page.Parse(rawURL, title, markup)
	require.NoError(t, err)
	return snap
}

func TestClassifyCheckoutPage(t *testing.T) {
	snap := parseSnap(t, "https://shop.example.com/cart", "Your Cart - Example Shop", cartPage)

	ctx := Classify(snap, "")

	// url +2, title +1, heading +1, 3 price nodes +2, quantity +1,
	// total node +2, checkout button +2
	assert.GreaterOrEqual(t, ctx.Score, 11)
	assert.True(t, ctx.IsCheckout)
	require.NotNil(t, ctx.Container)
	assert.Equal(t, "cart-root", ctx.Container.AttrOr("id", ""))
	assert.False(t, ctx.ContainerChanged)
}

func TestClassifyScoreMonotonicInURLSignal(t *testing.T) {
	withKeyword := Classify(parseSnap(t, "https://shop.example.com/cart", "Your Cart - Example Shop", cartPage), "")
	withoutKeyword := Classify(parseSnap(t, "https://shop.example.com/items", "Your Cart - Example Shop", cartPage), "")

	assert.Equal(t, withKeyword.Score, withoutKeyword.Score+2)
}

func TestClassifyNonCheckoutPage(t *testing.T) {
	snap := parseSnap(t, "https://blog.example.com/post", "A blog post", `<html><head></head><body>
		<article><h1>On prices</h1><p>Writing about things.</p></article>
	</body></html>`)

	ctx := Classify(snap, "")
	assert.False(t, ctx.IsCheckout)
}

func TestClassifyWalmartThreshold(t *testing.T) {
	markup := `<html><head></head><body>
		<div><div class="item-row"><span class="price">$15.00</span></div></div>
	</body></html>`

	// title keyword +1, walmart host bonus +2 = 3: passes only with the
	// per-host threshold override
	walmart := Classify(parseSnap(t, "https://www.walmart.com/", "Review your order", markup), "")
	assert.Equal(t, 3, walmart.Score)
	assert.True(t, walmart.IsCheckout)

	generic := Classify(parseSnap(t, "https://www.example.com/", "Review your order", markup), "")
	assert.Equal(t, 1, generic.Score)
	assert.False(t, generic.IsCheckout)
}

func TestClassifyPlatformFingerprint(t *testing.T) {
	base := `<html><head></head><body>
		<div><span class="price">$9.00</span></div>
	</body></html>`
	fingerprinted := `<html><head><meta name="generator" content="Shopify"></head><body>
		<div><span class="price">$9.00</span></div>
	</body></html>`

	plain := Classify(parseSnap(t, "https://shop.example.com/", "Shop", base), "")
	marked := Classify(parseSnap(t, "https://shop.example.com/", "Shop", fingerprinted), "")
	assert.Equal(t, plain.Score+1, marked.Score)
}

func TestClassifyContainerChanged(t *testing.T) {
	snap := parseSnap(t, "https://shop.example.com/cart", "Cart", cartPage)
	ctx := Classify(snap, "")
	path := page.Path(ctx.Container)

	// same container path on a fresh pass: unchanged
	again := Classify(parseSnap(t, "https://shop.example.com/cart", "Cart", cartPage), path)
	assert.False(t, again.ContainerChanged)

	// stale path forces re-location and flags the change
	moved := Classify(parseSnap(t, "https://shop.example.com/cart", "Cart", cartPage), "html > body:nth-child(2) > div:nth-child(9)")
	assert.True(t, moved.ContainerChanged)
}
