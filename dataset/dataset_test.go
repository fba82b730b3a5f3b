package dataset

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestForScenarioPaths(t *testing.T) {
	tests := []struct {
		scenario     string
		wantCSV      string
		wantEncoding string
	}{
		{
			scenario:     "pequeno",
			wantCSV:      "MICRODADOS_ENEM_2023_pequeno.csv",
			wantEncoding: EncodingUTF8,
		},
		{
			scenario:     "medio",
			wantCSV:      "MICRODADOS_ENEM_2023_medio.csv",
			wantEncoding: EncodingUTF8,
		},
		{
			scenario:     "grande",
			wantCSV:      "MICRODADOS_ENEM_2023.csv",
			wantEncoding: EncodingLatin1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			ds, err := ForScenario("data", tt.scenario)
			if err != nil {
				t.Fatalf("ForScenario failed: %v", err)
			}

			if filepath.Base(ds.CSVPath) != tt.wantCSV {
				t.Errorf("csv = %s, want base %s", ds.CSVPath, tt.wantCSV)
			}

			wantParquet := strings.TrimSuffix(tt.wantCSV, ".csv") + ".parquet"
			if filepath.Base(ds.ParquetPath) != wantParquet {
				t.Errorf("parquet = %s, want base %s", ds.ParquetPath, wantParquet)
			}

			if ds.Encoding != tt.wantEncoding {
				t.Errorf("encoding = %s, want %s", ds.Encoding, tt.wantEncoding)
			}

			if filepath.Base(ds.ItemsPath) != "ITENS_PROVA_2023.csv" {
				t.Errorf("items = %s", ds.ItemsPath)
			}

			if !strings.HasPrefix(ds.CSVPath, "data"+string(filepath.Separator)) {
				t.Errorf("csv path %s not rooted under data/", ds.CSVPath)
			}
		})
	}
}

func TestForScenarioUnknown(t *testing.T) {
	_, err := ForScenario(".", "gigante")
	if err == nil {
		t.Fatal("expected error for unknown scenario")
	}
	if !strings.Contains(err.Error(), "gigante") {
		t.Errorf("error should name the bad scenario: %v", err)
	}
}

func TestCheckReportsMissingFiles(t *testing.T) {
	root := t.TempDir()

	ds, err := ForScenario(root, "pequeno")
	if err != nil {
		t.Fatalf("ForScenario failed: %v", err)
	}

	if err := ds.Check(); err == nil {
		t.Fatal("expected error for empty data dir")
	}

	for _, path := range []string{ds.CSVPath, ds.ParquetPath, ds.ItemsPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	if err := ds.Check(); err != nil {
		t.Errorf("Check() = %v after creating all files, want nil", err)
	}
}

func TestOpenDecodesLatin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")

	raw := []byte("NO_MUNICIPIO_ESC\nS\xe3o Paulo\nBras\xedlia\n")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rc, err := Open(path, EncodingLatin1)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	want := "NO_MUNICIPIO_ESC\nSão Paulo\nBrasília\n"
	if string(got) != want {
		t.Errorf("decoded = %q, want %q", got, want)
	}
}

func TestOpenPassesThroughUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utf8.csv")

	want := "NO_MUNICIPIO_ESC\nSão Paulo\n"
	if err := os.WriteFile(path, []byte(want), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rc, err := Open(path, EncodingUTF8)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(got) != want {
		t.Errorf("read = %q, want %q", got, want)
	}
}

func TestNewWriterEncodesLatin1(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, EncodingLatin1)
	if _, err := io.WriteString(w, "João Pessoa"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := []byte("Jo\xe3o Pessoa")
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded = %q, want %q", buf.Bytes(), want)
	}
}

func TestNewWriterUTF8IsPassthrough(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf, EncodingUTF8)
	if _, err := io.WriteString(w, "João Pessoa"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if buf.String() != "João Pessoa" {
		t.Errorf("written = %q, want unchanged utf-8", buf.String())
	}
}

func TestScenariosOrder(t *testing.T) {
	got := Scenarios()
	want := []string{"pequeno", "medio", "grande"}

	if len(got) != len(want) {
		t.Fatalf("scenarios = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("scenario[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
