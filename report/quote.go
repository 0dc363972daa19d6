// Package report renders client-facing quote documents through Gotenberg.
// The core hands over data and consumes back bytes; layout lives here.
package report

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bali-malayali/bali-malayali/internal/identity"
	"github.com/bali-malayali/bali-malayali/internal/platform/httpx"
	"github.com/bali-malayali/bali-malayali/internal/quotes"
)

// Handler serves quote PDFs.
type Handler struct {
	client *Client
	quotes *quotes.Service
	logger *slog.Logger
}

// NewHandler creates the report handler.
func NewHandler(client *Client, quoteSvc *quotes.Service, logger *slog.Logger) *Handler {
	return &Handler{client: client, quotes: quoteSvc, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/quotes/{id}/document", h.quoteDocument)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) quoteDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote id")
		return
	}

	detail, err := h.quotes.Get(r.Context(), actor, id)
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "quote not found")
		return
	}
	if detail.Quote.FinalTotalIDR <= 0 {
		httpx.Problem(w, http.StatusConflict, "Not Priced", "quote must be priced before a document can be produced")
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), BuildQuoteHTML(detail))
	if err != nil {
		h.logger.Error("render quote pdf", "quote_id", id, slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=quote-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// BuildQuoteHTML lays out the client-facing quote document. The selected
// option leads; the others follow as alternatives.
func BuildQuoteHTML(detail *quotes.QuoteDetail) string {
	p := message.NewPrinter(language.Indonesian)
	q := detail.Quote

	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><title>Trip Quote</title>")
	b.WriteString("<style>body{font-family:sans-serif;margin:40px}table{border-collapse:collapse;width:100%}td,th{border:1px solid #ccc;padding:6px;text-align:left}.total{font-weight:bold}</style>")
	b.WriteString("</head><body>")
	b.WriteString(fmt.Sprintf("<h1>Bali Trip Quote #%d</h1>", q.ID))
	b.WriteString(fmt.Sprintf("<p>%s &ndash; %s &middot; %d adults, %d children</p>",
		q.TravelStart.Format("2 Jan 2006"), q.TravelEnd.Format("2 Jan 2006"), q.Pax, q.Children))

	b.WriteString("<h2>Itinerary</h2><table><tr><th>Day</th><th>Date</th><th>Region</th><th>Activities</th></tr>")
	for _, day := range detail.Days {
		b.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			day.DayNumber, day.DayDate.Format("2 Jan 2006"), day.Region, strings.Join(day.Activities, ", ")))
	}
	b.WriteString("</table>")

	b.WriteString("<h2>Options</h2><table><tr><th>Option</th><th>Total</th></tr>")
	for _, opt := range detail.Options {
		marker := ""
		if q.SelectedOptionID != nil && *q.SelectedOptionID == opt.ID {
			marker = " (selected)"
		}
		b.WriteString(fmt.Sprintf("<tr><td>Option %d%s</td><td>%s</td></tr>",
			opt.OptionNumber, marker, p.Sprintf("IDR %d", opt.FinalTotalIDR)))
	}
	b.WriteString("</table>")

	b.WriteString(fmt.Sprintf("<p class=\"total\">Total: %s</p>", p.Sprintf("IDR %d", q.FinalTotalIDR)))
	if q.DisplayCurrency != "" && q.DisplayCurrency != "IDR" && q.ExchangeRateUsed > 0 {
		b.WriteString(fmt.Sprintf("<p>Approx. %s %.2f (rate %.2f IDR)</p>",
			q.DisplayCurrency, float64(q.FinalTotalIDR)/q.ExchangeRateUsed, q.ExchangeRateUsed))
	}
	if q.ExpiresAt != nil {
		b.WriteString(fmt.Sprintf("<p>Valid until %s</p>", q.ExpiresAt.Format("2 Jan 2006 15:04 MST")))
	}
	if len(q.PolicySnapshot) > 0 {
		b.WriteString("<h2>Cancellation policy</h2><pre>" + string(q.PolicySnapshot) + "</pre>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
