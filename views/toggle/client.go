package toggle

import (
	"fmt"
	"strconv"

	"github.com/ryanhamamura/hellovia/components/button"
	"github.com/ryanhamamura/hellovia/h"
)

// ClientSignal is the Datastar signal holding the toggle in client-side renders.
const ClientSignal = "toggle"

// RenderClient draws s for a page without a server: the toggle lives in a
// Datastar signal and the browser flips it and swaps the label itself.
func RenderClient(s ViewState) h.H {
	sig := "$" + ClientSignal
	return h.Div(
		h.Data("signals:"+ClientSignal, strconv.FormatBool(s.Toggle)),
		h.H1(h.Textf("Hello, %s", s.Hello)),
		h.Pre(h.Text(s.Rest())),
		button.Render(button.Props{
			Label: Prompt(s.Toggle),
			Attrs: map[string]string{
				"data-text": fmt.Sprintf("%s ? '%s' : '%s'", sig, PromptOn, PromptOff),
			},
			OnClick: h.Data("on:click", fmt.Sprintf("%s = !%s", sig, sig)),
		}),
	)
}
