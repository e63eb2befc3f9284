package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/bistro/internal/api"
)

var printer = message.NewPrinter(language.English)

// formatPrice renders an amount in dollars with grouping: $1,234.50.
func formatPrice(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// linePrice is the unit price of a line: the recorded price, else the menu price.
func linePrice(li api.LineItem) float64 {
	if li.Price == 0 && li.MenuItem != nil {
		return li.MenuItem.Price
	}
	return li.Price
}

func itemCount(items []api.LineItem) int {
	n := 0
	for _, li := range items {
		n += li.Quantity
	}
	return n
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// messageView is a plain confirmation line, rendered as {"message": ...} in JSON.
type messageView struct {
	Message string `json:"message"`
}

func (v messageView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, v.Message)
	return err
}

func say(format string, args ...any) messageView {
	return messageView{Message: fmt.Sprintf(format, args...)}
}
