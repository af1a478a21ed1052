package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The injected scripts are plain strings, so their page-side contracts
// are pinned here: every dismissal trigger must route through dismiss()
// and the annotator must write live form state back into attributes
// before capture.
func TestMountScriptWiresDismissTriggers(t *testing.T) {
	assert.Contains(t, mountScript, "'Escape'")
	assert.Contains(t, mountScript, ".cg-close, .cg-primary")
	assert.Contains(t, mountScript, "kind: 'dismiss'")
}

func TestObserverScriptStampsLiveFormValues(t *testing.T) {
	assert.Contains(t, observerScript, "el.setAttribute('value', el.value)")
	assert.Contains(t, observerScript, "opt.setAttribute('selected', 'selected')")
}
