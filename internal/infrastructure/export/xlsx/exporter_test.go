package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

func TestExportWritesHeaderAndRows(t *testing.T) {
	person := "FUNC-001"
	location := "Entrada Principal"
	decisions := []domain.Decision{
		{
			ID:              "d1",
			Decision:        domain.DecisionApproved,
			Reason:          "Todos os EPIs presentes",
			ConfidenceScore: 0.93,
			PersonID:        &person,
			Location:        &location,
			Timestamp:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{ID: "d2", Decision: "escalated", Reason: "?", ConfidenceScore: 0.5},
	}

	raw, err := NewExporter(time.UTC).Export(decisions)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][6] != "Data/Hora" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	want := []string{"d1", "Aprovado", "Todos os EPIs presentes", "93%", "FUNC-001", "Entrada Principal", "01/03/2025 10:00:00"}
	for i, v := range want {
		if rows[1][i] != v {
			t.Fatalf("row 1 col %d = %q, want %q", i, rows[1][i], v)
		}
	}
	if rows[2][1] != "Pendente" {
		t.Fatalf("unknown verdict must export as Pendente, got %q", rows[2][1])
	}
}

func TestExportEmptyWindow(t *testing.T) {
	raw, err := NewExporter(nil).Export(nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
