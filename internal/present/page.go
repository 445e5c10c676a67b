package present

import (
	"fmt"
	"strings"

	"detaltap/internal/domain"
)

// Window is one page of a listing index.
type Window struct {
	Page     int
	PageSize int
	Offset   int
	Total    int
	HasPrev  bool
	HasNext  bool
}

func Paginate(page, pageSize, total int) Window {
	if page < 0 {
		page = 0
	}
	if pageSize < 1 {
		pageSize = 1
	}
	offset := page * pageSize
	return Window{
		Page:     page,
		PageSize: pageSize,
		Offset:   offset,
		Total:    total,
		HasPrev:  page > 0,
		HasNext:  offset+pageSize < total,
	}
}

// Pages is the number of pages needed for Total, at least 1.
func (w Window) Pages() int {
	if w.Total <= 0 {
		return 1
	}
	return (w.Total + w.PageSize - 1) / w.PageSize
}

func navRow(w Window, action string) []domain.Button {
	var row []domain.Button
	if w.HasPrev {
		row = append(row, domain.Button{Text: "⬅ Previous", Action: With(action, int64(w.Page-1))})
	}
	if w.HasNext {
		row = append(row, domain.Button{Text: "Next ➡", Action: With(action, int64(w.Page+1))})
	}
	return row
}

// Page renders a browse page: one block per listing, a row of detail buttons, then navigation.
func (f *Formatter) Page(ls []domain.Listing, w Window) domain.Unit {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Car Parts* (page %d of %d)\n\n", w.Page+1, w.Pages())
	views := make([]domain.Button, 0, len(ls))
	for _, l := range ls {
		fmt.Fprintf(&b, "🆔 ID: %d\n🔧 %s\n🚗 VIN: %s\n📦 OEM: %s\n💵 Price: %s\n📄 %s\n---\n",
			l.ID, Esc(l.Name), Esc(l.VIN), Esc(l.OEM), f.Price(l.Price), Esc(Truncate(l.Description, f.ListLimit)))
		views = append(views, domain.Button{Text: fmt.Sprintf("#%d", l.ID), Action: With(ActView, l.ID)})
	}
	var rows [][]domain.Button
	if len(views) > 0 {
		rows = append(rows, views)
	}
	if nav := navRow(w, ActBrowse); len(nav) > 0 {
		rows = append(rows, nav)
	}
	return domain.Unit{Text: b.String(), Buttons: rows, Markdown: true}
}

// AdminPage lists every listing with its uploader id and a delete button per listing.
func (f *Formatter) AdminPage(ls []domain.Listing, w Window) domain.Unit {
	var b strings.Builder
	fmt.Fprintf(&b, "🛠 *All listings* (%d total, page %d of %d)\n\n", w.Total, w.Page+1, w.Pages())
	var rows [][]domain.Button
	for _, l := range ls {
		fmt.Fprintf(&b, "#%d %s | %s | uploader %d %s\n",
			l.ID, Esc(l.Name), f.Price(l.Price), l.UploaderID, Esc(l.UploaderName))
		rows = append(rows, []domain.Button{{Text: fmt.Sprintf("🗑 Delete #%d", l.ID), Action: With(ActAdminDelete, l.ID)}})
	}
	if nav := navRow(w, ActAdminList); len(nav) > 0 {
		rows = append(rows, nav)
	}
	return domain.Unit{Text: b.String(), Buttons: rows, Markdown: true}
}
