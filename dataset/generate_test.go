package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := Config{Rows: 100, Seed: 42}

	var buf1, buf2 bytes.Buffer

	sum1, err := NewGenerator(cfg).Generate(&buf1)
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	sum2, err := NewGenerator(cfg).Generate(&buf2)
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if buf1.String() != buf2.String() {
		t.Error("output is not deterministic for same seed")
	}
	if sum1 != sum2 {
		t.Errorf("summaries differ: %+v vs %+v", sum1, sum2)
	}

	var buf3 bytes.Buffer
	if _, err := NewGenerator(Config{Rows: 100, Seed: 43}).Generate(&buf3); err != nil {
		t.Fatalf("third generation failed: %v", err)
	}

	if buf1.String() == buf3.String() {
		t.Error("different seeds produced identical output")
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := Config{Rows: 500, Seed: 7}

	var buf bytes.Buffer
	sum, err := NewGenerator(cfg).Generate(&buf)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	if sum.Rows != 500 {
		t.Errorf("rows = %d, want 500", sum.Rows)
	}

	cr := csv.NewReader(&buf)
	cr.Comma = Delimiter

	records, err := cr.ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if len(records) != 501 {
		t.Fatalf("lines = %d, want header + 500", len(records))
	}

	head := records[0]
	col := make(map[string]int, len(head))
	for i, name := range head {
		col[name] = i
	}

	for _, name := range []string{"CO_UF_ESC", "CO_PROVA_MT", "NU_NOTA_MT", "NU_NOTA_CN"} {
		if _, ok := col[name]; !ok {
			t.Fatalf("header missing %s: %v", name, head)
		}
	}

	absentees := 0

	for i, rec := range records[1:] {
		mt := rec[col["NU_NOTA_MT"]]

		v, err := strconv.ParseFloat(mt, 64)
		if err != nil {
			t.Fatalf("row %d: NU_NOTA_MT = %q not a float: %v", i, mt, err)
		}
		if v < 0 || v > 1000 {
			t.Errorf("row %d: NU_NOTA_MT = %v out of scale", i, v)
		}

		if _, err := strconv.Atoi(rec[col["CO_UF_ESC"]]); err != nil {
			t.Errorf("row %d: CO_UF_ESC = %q not an int", i, rec[col["CO_UF_ESC"]])
		}

		if rec[col["NU_NOTA_CN"]] == "" {
			absentees++
		}
	}

	if absentees != sum.Absentees {
		t.Errorf("blank first-day scores = %d, summary says %d", absentees, sum.Absentees)
	}
	if absentees == 0 {
		t.Error("expected some absentees in 500 rows")
	}
	if absentees == 500 {
		t.Error("expected some present candidates in 500 rows")
	}
}

func TestGenerateItemsHasDuplicateBookletCodes(t *testing.T) {
	var buf bytes.Buffer

	rows, err := NewGenerator(Config{Seed: 1}).GenerateItems(&buf)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	wantRows := len(areas) * provasPerArea * itemsPerProva
	if rows != wantRows {
		t.Errorf("rows = %d, want %d", rows, wantRows)
	}

	cr := csv.NewReader(&buf)
	cr.Comma = Delimiter

	records, err := cr.ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if len(records) != wantRows+1 {
		t.Fatalf("lines = %d, want header + %d", len(records), wantRows)
	}

	head := records[0]
	col := make(map[string]int, len(head))
	for i, name := range head {
		col[name] = i
	}

	pairs := make(map[string]int)
	for _, rec := range records[1:] {
		pairs[rec[col["CO_PROVA"]]+"|"+rec[col["SG_AREA"]]]++
	}

	wantDistinct := len(areas) * provasPerArea
	if len(pairs) != wantDistinct {
		t.Errorf("distinct (CO_PROVA, SG_AREA) = %d, want %d", len(pairs), wantDistinct)
	}

	for pair, n := range pairs {
		if n != itemsPerProva {
			t.Errorf("pair %s appears %d times, want %d", pair, n, itemsPerProva)
		}
	}
}

func TestWriteScenarioRoundTrips(t *testing.T) {
	for _, scenario := range []string{"pequeno", "grande"} {
		t.Run(scenario, func(t *testing.T) {
			root := t.TempDir()
			cfg := Config{Rows: 200, Seed: 7}

			sum, err := WriteScenario(root, scenario, cfg)
			if err != nil {
				t.Fatalf("WriteScenario failed: %v", err)
			}
			if sum.Rows != 200 {
				t.Errorf("rows = %d, want 200", sum.Rows)
			}

			ds, err := ForScenario(root, scenario)
			if err != nil {
				t.Fatalf("ForScenario failed: %v", err)
			}

			rc, err := ds.OpenCSV()
			if err != nil {
				t.Fatalf("OpenCSV failed: %v", err)
			}
			defer rc.Close()

			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}

			var want bytes.Buffer
			if _, err := NewGenerator(cfg).Generate(&want); err != nil {
				t.Fatalf("reference generation failed: %v", err)
			}

			if !bytes.Equal(got, want.Bytes()) {
				t.Error("decoded file differs from direct generation")
			}
		})
	}
}

func TestWriteItems(t *testing.T) {
	root := t.TempDir()

	rows, err := WriteItems(root, 1)
	if err != nil {
		t.Fatalf("WriteItems failed: %v", err)
	}
	if rows == 0 {
		t.Fatal("no item rows written")
	}

	ds, err := ForScenario(root, "pequeno")
	if err != nil {
		t.Fatalf("ForScenario failed: %v", err)
	}

	rc, err := ds.OpenItems()
	if err != nil {
		t.Fatalf("OpenItems failed: %v", err)
	}
	defer rc.Close()

	cr := csv.NewReader(rc)
	cr.Comma = Delimiter

	head, err := cr.Read()
	if err != nil {
		t.Fatalf("read header: %v", err)
	}

	found := false
	for _, name := range head {
		if name == "CO_PROVA" {
			found = true
		}
	}
	if !found {
		t.Errorf("items header missing CO_PROVA: %v", head)
	}
}
