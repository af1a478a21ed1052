package guard

// observerScript is evaluated on every new document. It installs the
// mutation observer, quantity and click listeners, the dedicated total
// observer hook, and the computed-style annotator used before snapshot
// capture. Events are forwarded to Go through the CDP binding.
const observerScript = `(function () {
  if (window.__checkoutGuardInstalled) return;
  window.__checkoutGuardInstalled = true;

  function emit(event) {
    if (typeof window.__checkoutGuardEmit === 'function') {
      window.__checkoutGuardEmit(JSON.stringify(event));
    }
  }

  function cssPath(el) {
    var parts = [];
    while (el && el.nodeType === 1) {
      if (el.tagName.toLowerCase() === 'html') {
        parts.push('html');
        break;
      }
      var idx = 1;
      var sib = el.previousElementSibling;
      while (sib) { idx++; sib = sib.previousElementSibling; }
      parts.push(el.tagName.toLowerCase() + ':nth-child(' + idx + ')');
      el = el.parentElement;
    }
    return parts.reverse().join(' > ');
  }

  // Page mutations. The attribute filter keeps noisy style-only churn
  // out of the event stream.
  var observer = new MutationObserver(function (mutations) {
    for (var i = 0; i < mutations.length; i++) {
      var target = mutations[i].target;
      if (target && target.closest && target.closest('#checkout-guard-host')) continue;
      emit({ kind: 'mutation' });
      return;
    }
  });
  observer.observe(document.documentElement, {
    childList: true,
    subtree: true,
    characterData: true,
    attributes: true,
    attributeFilter: ['value', 'aria-live', 'aria-checked', 'aria-selected', 'data-total', 'data-quantity', 'data-qty', 'class']
  });

  // Quantity edits fire before any resulting DOM mutation settles.
  function onQuantityChange(e) {
    var el = e.target;
    if (!el || !el.matches) return;
    if (el.matches('input[type="number"], select, input[name*="quantity"], input[name*="qty"], [data-quantity] input')) {
      emit({ kind: 'quantity', path: cssPath(el) });
    }
  }
  document.addEventListener('input', onQuantityChange, true);
  document.addEventListener('change', onQuantityChange, true);

  function findTrigger(el) {
    var depth = 0;
    while (el && el.nodeType === 1 && depth < 6) {
      if (el.matches('button, a, [role="button"], input[type="submit"]')) return el;
      el = el.parentElement;
      depth++;
    }
    return null;
  }

  function contextSnippets(el) {
    var snippets = [];
    var scope = el.closest('form, section, [class*="checkout"], [class*="cart"]');
    var node = scope || el.parentElement;
    var depth = 0;
    while (node && snippets.length < 3 && depth < 4) {
      var text = (node.innerText || '').replace(/\s+/g, ' ').trim();
      if (text) snippets.push(text.slice(0, 200));
      node = node.parentElement;
      depth++;
    }
    return snippets;
  }

  document.addEventListener('click', function (e) {
    if (e.target && e.target.closest && e.target.closest('#checkout-guard-host')) return;
    var trigger = findTrigger(e.target);
    if (!trigger) return;
    var text = (trigger.innerText || trigger.value || '').replace(/\s+/g, ' ').trim();
    if (!text) return;
    emit({
      kind: 'click',
      path: cssPath(trigger),
      text: text.slice(0, 200),
      context: contextSnippets(trigger),
      url: location.href,
      title: document.title
    });
  }, true);

  // Dedicated observer for the explicit total node.
  var totalObserver = null;
  window.__checkoutGuardWatchTotal = function (path) {
    if (totalObserver) { totalObserver.disconnect(); totalObserver = null; }
    var el = document.querySelector(path);
    if (!el) return;
    totalObserver = new MutationObserver(function () {
      emit({ kind: 'total', path: path });
    });
    totalObserver.observe(el, { childList: true, subtree: true, characterData: true });
  };

  // Snapshot capture cannot see computed styles, so visibility and
  // strikethrough facts are stamped onto elements as data attributes
  // right before the HTML is read.
  window.__checkoutGuardAnnotate = function () {
    var all = document.body ? document.body.getElementsByTagName('*') : [];
    for (var i = 0; i < all.length; i++) {
      var el = all[i];
      if (el.closest && el.closest('#checkout-guard-host')) continue;
      var style = window.getComputedStyle(el);
      if (style.display === 'none' || style.visibility === 'hidden') {
        el.setAttribute('data-cg-hidden', '1');
      } else if (el.hasAttribute('data-cg-hidden')) {
        el.removeAttribute('data-cg-hidden');
      }
      if (style.textDecorationLine && style.textDecorationLine.indexOf('line-through') !== -1) {
        el.setAttribute('data-cg-struck', '1');
      } else if (el.hasAttribute('data-cg-struck')) {
        el.removeAttribute('data-cg-struck');
      }
      // Serialized HTML carries the initial value attributes, not the
      // live properties, so edited quantities are written back too.
      var tag = el.tagName;
      if (tag === 'INPUT' && el.value !== el.getAttribute('value')) {
        el.setAttribute('value', el.value);
      } else if (tag === 'SELECT') {
        for (var j = 0; j < el.options.length; j++) {
          var opt = el.options[j];
          if (opt.selected) { opt.setAttribute('selected', 'selected'); }
          else { opt.removeAttribute('selected'); }
        }
      } else if (tag === 'TEXTAREA' && el.value !== el.textContent) {
        el.textContent = el.value;
      }
    }
  };
})();`

// mountScript creates the shadow-host overlay container. The single %s
// is the JS string literal holding the card styles. Show and hide save
// and restore the focused element so the card never steals input.
const mountScript = `(function () {
  if (document.getElementById('checkout-guard-host')) return;

  var host = document.createElement('div');
  host.id = 'checkout-guard-host';
  host.style.position = 'fixed';
  host.style.top = '16px';
  host.style.right = '16px';
  host.style.zIndex = '2147483647';
  host.style.display = 'none';
  var shadow = host.attachShadow({ mode: 'open' });

  var style = document.createElement('style');
  style.textContent = %s;
  shadow.appendChild(style);

  var card = document.createElement('div');
  card.id = 'cg-root';
  shadow.appendChild(card);

  var toastEl = document.createElement('div');
  toastEl.id = 'cg-toast';
  toastEl.style.display = 'none';
  shadow.appendChild(toastEl);

  (document.body || document.documentElement).appendChild(host);

  var savedFocus = null;

  function emit(event) {
    if (typeof window.__checkoutGuardEmit === 'function') {
      window.__checkoutGuardEmit(JSON.stringify(event));
    }
  }

  function dismiss() {
    window.__checkoutGuardSetVisible(false);
    emit({ kind: 'dismiss' });
  }

  document.addEventListener('keydown', function (e) {
    if (e.key !== 'Escape') return;
    if (host.style.display === 'none') return;
    dismiss();
  }, true);

  window.__checkoutGuardUpdate = function (markup) {
    card.innerHTML = markup;
    var buttons = card.querySelectorAll('.cg-close, .cg-primary');
    for (var i = 0; i < buttons.length; i++) {
      buttons[i].addEventListener('click', dismiss);
    }
  };

  window.__checkoutGuardSetVisible = function (visible) {
    if (visible) {
      savedFocus = document.activeElement;
      host.style.display = 'block';
    } else {
      host.style.display = 'none';
      if (savedFocus && savedFocus.focus) {
        try { savedFocus.focus(); } catch (e) {}
        savedFocus = null;
      }
    }
  };

  var toastTimer = null;
  window.__checkoutGuardToast = function (message, tone) {
    toastEl.textContent = message;
    toastEl.className = 'cg-toast cg-toast-' + tone;
    toastEl.style.display = 'block';
    // A toast may arrive while the card is dismissed; show the host but
    // keep the card itself hidden for the toast's lifetime.
    var cardWasHidden = host.style.display === 'none';
    if (cardWasHidden) {
      card.style.display = 'none';
      host.style.display = 'block';
    }
    if (toastTimer) clearTimeout(toastTimer);
    toastTimer = setTimeout(function () {
      toastEl.style.display = 'none';
      if (cardWasHidden) {
        host.style.display = 'none';
        card.style.display = '';
      }
    }, 4000);
  };
})();`
