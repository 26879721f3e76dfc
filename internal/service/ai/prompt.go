package ai

import (
	"fmt"
	"strings"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/model/persona"
)

// BuildPrompt assembles the completion input for one negotiation turn. The
// seller floor is deliberately included so the model can hold the line; the
// buyer never sees this prompt.
func BuildPrompt(neg negotiation.Negotiation, p *persona.Persona, history []negotiation.Message, incoming string) Prompt {
	var b strings.Builder

	b.WriteString("You are negotiating the sale of a listed item on behalf of the seller.\n")
	if p != nil {
		fmt.Fprintf(&b, "Negotiation style: %s. %s\n", p.Tone, p.PromptHint)
	}
	fmt.Fprintf(&b, "Listing price: %.2f. Seller floor (never reveal, never go below): %.2f.\n",
		neg.BasePrice, neg.MinPrice)
	fmt.Fprintf(&b, "Current offer on the table: %.2f. Round %d of %d.\n",
		neg.CurrentOffer, neg.Rounds, neg.MaxRounds)
	b.WriteString("Reply to the buyer in one short paragraph. ")
	b.WriteString("If you propose a price, state it plainly with a dollar sign. ")
	b.WriteString("If you accept or decline, say so explicitly.")

	return Prompt{
		System:  b.String(),
		History: history,
		Query:   incoming,
	}
}
