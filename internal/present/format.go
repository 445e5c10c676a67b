// Package present turns listings into transport-ready units. Nothing here
// touches a store; every output depends only on its arguments.
package present

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"detaltap/internal/domain"
)

const DefaultListLimit = 50

type Formatter struct {
	Currency  string
	ListLimit int // description runes shown in list views
}

func New(currency string) *Formatter {
	if currency == "" {
		currency = "AZN"
	}
	return &Formatter{Currency: currency, ListLimit: DefaultListLimit}
}

var mdEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// Esc escapes user text for Telegram Markdown.
func Esc(s string) string { return mdEscaper.Replace(s) }

// code renders s as an inline code span; backticks cannot be escaped inside one.
func code(s string) string { return "`" + strings.ReplaceAll(s, "`", "'") + "`" }

// Truncate cuts s to n runes and marks the cut with "...".
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func (f *Formatter) Price(d decimal.Decimal) string {
	return d.StringFixed(2) + " " + f.Currency
}

func listingButtons(id int64) [][]domain.Button {
	return [][]domain.Button{
		{{Text: "Contact Seller", Action: With(ActContact, id)}},
		{{Text: "View Details", Action: With(ActView, id)}},
	}
}

// Card is the list view of one listing.
func (f *Formatter) Card(l domain.Listing) domain.Unit {
	text := fmt.Sprintf("🔧 *%s*\nVIN: %s | OEM: %s\n💰 *%s*\n📝 %s",
		Esc(l.Name), code(l.VIN), code(l.OEM), f.Price(l.Price), Esc(Truncate(l.Description, f.ListLimit)))
	return domain.Unit{Text: text, Image: l.PhotoRef, Buttons: listingButtons(l.ID), Markdown: true}
}

func (f *Formatter) Cards(ls []domain.Listing) []domain.Unit {
	out := make([]domain.Unit, 0, len(ls))
	for _, l := range ls {
		out = append(out, f.Card(l))
	}
	return out
}

// Detail is the single-item view: full description and the uploader handle.
func (f *Formatter) Detail(l domain.Listing) domain.Unit {
	text := fmt.Sprintf("🔎 *%s*\nVIN: %s\nOEM: %s\n💰 *%s*\n📝 %s\n\nUploaded by: %s",
		Esc(l.Name), code(l.VIN), code(l.OEM), f.Price(l.Price), Esc(l.Description), Esc(l.SellerHandle()))
	return domain.Unit{
		Text:     text,
		Image:    l.PhotoRef,
		Buttons:  [][]domain.Button{{{Text: "Contact Seller", Action: With(ActContact, l.ID)}}},
		Markdown: true,
	}
}

// Confirmation summarises an upload draft with confirm and cancel buttons.
func (f *Formatter) Confirmation(d domain.Draft) domain.Unit {
	text := fmt.Sprintf("🔎 *Please confirm your listing:*\n\n*Name:* %s\n*VIN:* %s\n*OEM:* %s\n*Price:* *%s*\n*Description:* %s",
		Esc(d.Name), code(d.VIN), code(d.OEM), f.Price(d.Price), Esc(d.Description))
	return domain.Unit{
		Text:  text,
		Image: d.PhotoRef,
		Buttons: [][]domain.Button{
			{{Text: "✅ Confirm and Upload", Action: ActConfirmUpload}},
			{{Text: "🔄 Cancel", Action: ActCancelUpload}},
		},
		Markdown: true,
	}
}

// SellerNotice tells a seller that buyer is interested in l.
func (f *Formatter) SellerNotice(l domain.Listing, buyer string) domain.Unit {
	text := fmt.Sprintf("🟢 Someone is interested in your listing *%s*.\nBuyer: %s\nListing ID: %d\nYou can reply to them directly in Telegram.",
		Esc(l.Name), Esc(buyer), l.ID)
	return domain.Unit{Text: text, Markdown: true}
}

// ResultsHeader introduces a search result set, noting when it was capped.
func ResultsHeader(shown, total int) domain.Unit {
	if shown < total {
		return domain.TextUnit(fmt.Sprintf("🔍 Found %d parts. Showing %d of %d.", total, shown, total))
	}
	return domain.TextUnit(fmt.Sprintf("🔍 Found %d parts.", total))
}

func MainMenu() domain.Unit {
	return domain.Unit{
		Text: "👋 Welcome to *DetalTap* — your digital garage!\nChoose an option below:",
		Buttons: [][]domain.Button{
			{{Text: "🛒 Browse Parts", Action: With(ActBrowse, 0)}},
			{{Text: "🔧 Upload a Part", Action: ActUpload}},
			{{Text: "🔍 Search Parts", Action: ActSearch}},
		},
		Markdown: true,
	}
}

func SearchMenu() domain.Unit {
	return domain.Unit{
		Text: "How do you want to search?",
		Buttons: [][]domain.Button{
			{{Text: "🔎 By Name/Keyword", Action: ActSearchName}},
			{{Text: "🚗 By VIN", Action: ActSearchVIN}},
			{{Text: "⚙️ By OEM", Action: ActSearchOEM}},
			{{Text: "💸 By Price Range", Action: ActSearchPrice}},
			{{Text: "↩️ Back", Action: ActBackMenu}},
		},
	}
}

func Help(admin bool) domain.Unit {
	text := "/start - main menu\n/cancel - abandon the current upload or search\n/help - this message"
	if admin {
		text += "\n/admin - moderation commands"
	}
	return domain.TextUnit(text)
}

func AdminHelp() domain.Unit {
	return domain.TextUnit("Admin commands:\n/list [page] - all listings with uploader ids\n/delete <id> - remove a listing\n/ban <userID> [reason]\n/unban <userID>\n/stats - marketplace numbers")
}

func (f *Formatter) Stats(s domain.Stats) domain.Unit {
	text := fmt.Sprintf("📊 *Stats*\nListings: %d\nNew in last 24h: %d\nSellers: %d\nBanned users: %d\nActive sessions: %d",
		s.Listings, s.Last24h, s.Sellers, s.Bans, s.ActiveSessions)
	return domain.Unit{Text: text, Markdown: true}
}
