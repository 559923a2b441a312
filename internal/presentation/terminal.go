package presentation

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// RenderTerminal writes a plain-text dashboard for the watch command.
func RenderTerminal(out io.Writer, vm ViewModel) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	fmt.Fprintf(w, "%s\t[%s]\t%s\n", vm.Title, vm.Health, vm.GeneratedAt)
	fmt.Fprintln(w)
	for _, card := range vm.Cards {
		fmt.Fprintf(w, "%s\t%d\t%s\n", card.Title, card.Value, card.Detail)
	}
	fmt.Fprintf(w, "estatísticas: %s\t\t\n", vm.StatsFreshness)
	fmt.Fprintln(w)

	for _, n := range vm.Notifications {
		fmt.Fprintf(w, "! %s\t%s\t\n", n.Title, n.Description)
	}
	if len(vm.Notifications) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Histórico de Decisões (%s)\t\t\t\t\n", vm.HistoryFreshness)
	if vm.History.EmptyMessage != "" {
		fmt.Fprintln(w, vm.History.EmptyMessage)
		return w.Flush()
	}
	fmt.Fprintln(w, "DECISÃO\tPESSOA\tLOCAL\tCONFIANÇA\tDATA/HORA\tMOTIVO")
	fmt.Fprintln(w, "-------\t------\t-----\t---------\t---------\t------")
	for _, row := range vm.History.Rows {
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s\t%s\n",
			row.Badge.Icon, row.Badge.Label,
			orDash(row.PersonID), orDash(row.Location),
			row.Confidence, row.Timestamp, row.Reason,
		)
	}
	return w.Flush()
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
