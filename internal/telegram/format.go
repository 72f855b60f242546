package telegram

import (
	"strconv"
	"strings"

	"github.com/cardmeta/bindex/internal/model"
)

const (
	greeting = "Welcome to the BIN directory bot.\n" +
		"Send a six-digit BIN (or /lookup <bin>) and I will reply with what is on file."
	usageReply    = "Send a six-digit BIN, for example: 411111"
	notFoundReply = "No record on file for that BIN."
)

// formatRecord renders a record as a multi-line chat reply. Blank attributes
// are omitted so the reply only lists what is actually on file.
func formatRecord(rec model.BinRecord) string {
	var b strings.Builder
	b.WriteString("BIN " + rec.Code)

	line := func(label, value string) {
		if value != "" {
			b.WriteString("\n" + label + ": " + value)
		}
	}
	line("Company", rec.Company)
	line("Country", rec.Country)
	line("Category", rec.Category)
	line("Card type", rec.CardType)
	line("Issuer", rec.Issuer)
	line("Distributor", rec.Distributor)
	line("Reloadable", rec.Reloadable)
	line("International", rec.International)
	if rec.MaxBalance != nil {
		line("Max balance", strconv.FormatInt(*rec.MaxBalance, 10))
	}
	line("Customer service", rec.CustomerService)
	line("Website", rec.WebsiteURL)

	return b.String()
}
