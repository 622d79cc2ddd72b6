// Package reply renders outcomes as chat replies.
package reply

import (
	"fmt"
	"strings"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/locale"
)

// Reactions sent alongside replies.
const (
	ReactionProcessing = "🔃"
	ReactionAdded      = "✅"
	ReactionEdited     = "✏️"
	ReactionDeleted    = "🗑️"
	ReactionChat       = "💬"
	ReactionFailed     = "❌"
)

const rule = "━━━━━━━━━━━━━━━━━━"

var categoryIcons = map[api.Category]string{
	api.CategoryFoodDrink:      "🍽️",
	api.CategoryTransport:      "🚗",
	api.CategoryMobileInternet: "📶",
	api.CategoryEntertainment:  "🎮",
	api.CategoryShopping:       "🛍️",
	api.CategoryBills:          "📄",
	api.CategoryIncome:         "💰",
}

var flowIcons = map[api.Flow]string{
	api.FlowIncome:   "📈",
	api.FlowSpending: "📉",
}

// Reply is a rendered outcome. An empty Reaction means none is sent.
type Reply struct {
	Text     string
	Reaction string
}

// Presenter renders outcomes in one locale.
type Presenter struct {
	Locale *locale.Locale
}

// Render turns an outcome into reply text and a reaction.
func (p Presenter) Render(o api.Outcome) Reply {
	t := p.Locale.Texts

	switch o := o.(type) {
	case api.Added:
		var b strings.Builder
		b.WriteString(t.AddedTitle)
		b.WriteString("\n")
		for i, tx := range o.Transactions {
			id := tx.ID
			if i < len(o.IDs) {
				id = o.IDs[i]
			}
			b.WriteString("\n")
			b.WriteString(p.block(id, tx))
		}
		return Reply{Text: strings.TrimSpace(b.String()), Reaction: ReactionAdded}

	case api.Edited:
		return Reply{Text: t.EditedTitle + "\n\n" + p.block(o.ID, o.Transaction), Reaction: ReactionEdited}

	case api.EditMissingData:
		return Reply{Text: t.EditMissingData}

	case api.EditFailed:
		return Reply{Text: t.EditFailed, Reaction: ReactionFailed}

	case api.Deleted:
		return Reply{
			Text:     t.DeletedTitle + "\n\n" + fmt.Sprintf(t.DeletedBody, strings.Join(o.IDs, ", ")),
			Reaction: ReactionDeleted,
		}

	case api.DeleteFailed:
		return Reply{Text: t.DeleteFailed, Reaction: ReactionFailed}

	case api.Chatted:
		return Reply{Text: o.Message, Reaction: ReactionChat}

	default:
		return Reply{Text: t.GenericFailure, Reaction: ReactionFailed}
	}
}

// Failure is the reply for any error reaching the message boundary.
func (p Presenter) Failure() Reply {
	return p.Render(api.Failed{})
}

// block renders one transaction between two rules.
func (p Presenter) block(id string, tx api.Transaction) string {
	t := p.Locale.Texts

	categoryIcon, ok := categoryIcons[tx.Category]
	if !ok {
		categoryIcon = "📂"
	}
	flowIcon, ok := flowIcons[tx.Flow]
	if !ok {
		flowIcon = "📊"
	}

	lines := []string{
		rule,
		fmt.Sprintf("🆔 *%s:* `%s`", t.FieldID, id),
		fmt.Sprintf("📅 *%s:* %s", t.FieldDate, tx.Date),
		fmt.Sprintf("📝 *%s:* %s", t.FieldTransaction, tx.Description),
		fmt.Sprintf("💰 *%s:* %s", t.FieldNominal, p.Locale.FormatAmount(tx.Amount)),
		fmt.Sprintf("%s *%s:* %s", flowIcon, t.FieldCashflow, tx.Flow),
		fmt.Sprintf("%s *%s:*  %s", categoryIcon, t.FieldCategory, p.Locale.CategoryLabel(tx.Category)),
		rule,
	}
	return strings.Join(lines, "\n")
}
