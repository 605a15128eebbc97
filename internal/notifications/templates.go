package notifications

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// Message bodies are plain chat text, so autoescaping is turned off.
func mustTemplate(src string) *pongo2.Template {
	return pongo2.Must(pongo2.FromString("{% autoescape off %}" + src + "{% endautoescape %}"))
}

var (
	tplNeedsBoth = mustTemplate(`You did not vouch or leave a 5-star review. Please do both within 24 hours to activate your warranty:

1. Vouch with the following message in {{ vouch_channel }}:
{{ vouch }}
2. Leave a 5-star review: {{ review_url }}`)

	tplNeedsEndorsement = mustTemplate(`You left a 5-star review, but did not vouch in the proper format. Please vouch with the following message in {{ vouch_channel }} within 24 hours to activate your warranty:
{{ vouch }}`)

	tplNeedsReview = mustTemplate(`You vouched in the proper format, but did not leave a 5-star review. Please leave a 5-star review within 24 hours to activate your warranty: {{ review_url }}`)

	tplExpired = mustTemplate(`Your warranty for order {{ order_id }} has expired. Warranty duration was {{ duration }} and the order was completed on {{ completed_at }}.`)

	tplPolicyMissing = mustTemplate(`Could not determine the warranty duration for {{ product }}.`)

	tplEligible = mustTemplate(`Order {{ order_id }} is covered until {{ warranty_end }} ({{ remaining }}).`)

	tplTicketSummary = mustTemplate(`Order {{ order_id }} requested by {{ claimant }}`)

	tplTranscript = mustTemplate(`Ticket {{ channel }} has been closed. Here is the transcript.`)

	tplReplacementStock = mustTemplate(`You have received {{ amount }}x {{ product }} replacement.`)

	tplReplacementContent = mustTemplate(`You have received a replacement for {{ product }}.`)
)

func render(tpl *pongo2.Template, data pongo2.Context) string {
	out, err := tpl.Execute(data)
	if err != nil {
		// Templates are compiled at init and only receive strings.
		return fmt.Sprintf("render error: %v", err)
	}
	return out
}
