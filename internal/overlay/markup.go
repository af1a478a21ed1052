package overlay

import (
	"fmt"
	"html/template"
	"strings"
)

// Palette for the injected card.
const (
	colorBlack  = "#000000"
	colorNavy   = "#14213D"
	colorAccent = "#FCA311"
	colorGray   = "#E5E5E5"
	colorWhite  = "#FFFFFF"
)

var cardTemplate = template.Must(template.New("card").Parse(`<div class="cg-card">
  <div class="cg-header">
    <span>Checkout Guard</span>
    <button class="cg-close" aria-label="Close">&times;</button>
  </div>
  <div class="cg-body">
    <div class="cg-row"><span>Current balance</span><strong>{{.BalanceText}}</strong></div>
    <div class="cg-row"><span>Cart total</span><strong>{{.TotalText}}</strong></div>
    <div class="cg-row"><span>After purchase</span>
      <span class="cg-chip {{if .ChipNegative}}cg-negative{{else}}cg-positive{{end}}"><strong>{{.ChipText}}</strong></span>
    </div>
    <div>
      <div class="cg-progress"><div class="cg-progress-fill" style="transform: scaleX({{printf "%.2f" .Progress}})"></div></div>
      <p class="cg-tip">{{.Tip}}</p>
    </div>
    <p class="cg-caption">{{.Caption}}</p>
  </div>
  <div class="cg-footer">
    <button class="cg-primary" type="button">Got it</button>
  </div>
</div>`))

// HTML renders the card markup for the injected shadow root. All values
// pass through html/template so hostile page text cannot break out of
// the card.
func (v View) HTML() (string, error) {
	var b strings.Builder
	if err := cardTemplate.Execute(&b, v); err != nil {
		return "", fmt.Errorf("failed to render overlay card: %w", err)
	}
	return b.String(), nil
}

// Styles returns the stylesheet installed into the shadow root once at
// mount time.
func Styles() string {
	s := `
:host { all: initial; }
.cg-card { width: min(85vw, 400px); background: WHITE; border-radius: 18px; box-shadow: 0 25px 60px rgba(0,0,0,0.25); overflow: hidden; font-family: "Inter", "Segoe UI", sans-serif; color: NAVY; display: grid; gap: 18px; padding: 24px 20px 28px; }
.cg-header { display: flex; justify-content: space-between; align-items: center; font-weight: 700; font-size: 18px; }
.cg-close { background: none; border: none; color: NAVY; font-size: 28px; cursor: pointer; }
.cg-body { display: grid; gap: 16px; }
.cg-row { display: flex; justify-content: space-between; align-items: center; font-size: 15px; }
.cg-chip { display: inline-flex; align-items: center; justify-content: center; padding: 5px 12px; border-radius: 999px; font-size: 13px; font-weight: 600; }
.cg-chip.cg-positive { background: GRAY; color: NAVY; }
.cg-chip.cg-negative { background: BLACK; color: ACCENT; }
.cg-progress { height: 6px; background: rgba(20,33,61,0.15); border-radius: 999px; overflow: hidden; }
.cg-progress-fill { height: 100%; background: ACCENT; transform-origin: left; transform: scaleX(0); transition: transform 0.2s ease; }
.cg-tip { margin-top: 6px; font-size: 14px; color: rgba(20,33,61,0.78); }
.cg-caption { font-size: 13px; color: rgba(20,33,61,0.6); }
.cg-footer { display: flex; justify-content: center; gap: 14px; }
.cg-primary { background: ACCENT; color: BLACK; border: none; border-radius: 10px; padding: 10px 14px; font-weight: 600; font-size: 14px; cursor: pointer; }
.cg-toast { margin-top: 10px; padding: 10px 14px; border-radius: 10px; font-family: "Inter", "Segoe UI", sans-serif; font-size: 13px; font-weight: 600; box-shadow: 0 8px 24px rgba(0,0,0,0.2); }
.cg-toast-warning { background: BLACK; color: ACCENT; }
.cg-toast-info { background: WHITE; color: NAVY; }
`
	r := strings.NewReplacer(
		"BLACK", colorBlack,
		"NAVY", colorNavy,
		"ACCENT", colorAccent,
		"GRAY", colorGray,
		"WHITE", colorWhite,
	)
	return r.Replace(s)
}
