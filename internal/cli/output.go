package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/bill-reconciler/internal/application/reconcile"
	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// PrintResult prints a reconciled bill and its parent, if any
func PrintResult(w io.Writer, result *reconcile.Result) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	printBill(w, "Bill", result.Bill)
	if result.Parent != nil {
		fmt.Fprintln(w)
		printBill(w, "Merged into", result.Parent)
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
}

// PrintResultJSON writes the result as indented JSON
func PrintResultJSON(w io.Writer, result *reconcile.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

func printBill(w io.Writer, title string, b *bill.Bill) {
	fmt.Fprintf(w, "%s #%d (%s, %s)\n", title, b.ID, b.Type.Label(), b.State)
	fmt.Fprintf(w, "  Amount:   %s", b.Amount.StringFixed(2))
	if !b.Fee.IsZero() {
		fmt.Fprintf(w, " (fee %s)", b.Fee.StringFixed(2))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Time:     %s\n", b.Time.Format("2006-01-02 15:04:05"))
	printField(w, "Shop", strings.TrimSpace(b.ShopName+" "+b.ShopItem))
	printField(w, "Category", b.CategoryName)
	printField(w, "Book", b.BookName)
	printField(w, "From", b.AccountFrom)
	printField(w, "To", b.AccountTo)
	printField(w, "Remark", b.Remark)
	printField(w, "Rule", b.RuleName)
}

func printField(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %-9s %s\n", label+":", value)
}
