// Package dataset resolves the benchmark's input files and generates
// the synthetic exam microdata they hold.
package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Delimiter used by every CSV in the dataset, inputs and outputs alike.
const Delimiter = ';'

// Encodings of the source files. The full-size extract ships as
// latin-1, the cut-down tiers are re-encoded utf-8, and the items
// lookup is always latin-1.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

const (
	dataDir   = "microdados_enem_2023/DADOS"
	baseName  = "MICRODADOS_ENEM_2023"
	itemsName = "ITENS_PROVA_2023.csv"
)

// Scenarios returns the dataset tiers in ascending size order.
func Scenarios() []string {
	return []string{"pequeno", "medio", "grande"}
}

// Dataset locates one scenario's input files and carries the encoding
// its main files use.
type Dataset struct {
	Scenario    string
	CSVPath     string
	ParquetPath string
	ItemsPath   string
	Encoding    string
	OutDir      string
}

// ForScenario maps a tier name to its fixed file layout under root.
// The full-size tier uses the original latin-1 extract; the smaller
// tiers are utf-8 cuts of it.
func ForScenario(root, scenario string) (Dataset, error) {
	base := filepath.Join(root, dataDir, baseName)

	ds := Dataset{
		Scenario:  scenario,
		ItemsPath: filepath.Join(root, dataDir, itemsName),
		OutDir:    ".",
	}

	switch scenario {
	case "grande":
		ds.CSVPath = base + ".csv"
		ds.ParquetPath = base + ".parquet"
		ds.Encoding = EncodingLatin1
	case "pequeno", "medio":
		ds.CSVPath = base + "_" + scenario + ".csv"
		ds.ParquetPath = base + "_" + scenario + ".parquet"
		ds.Encoding = EncodingUTF8
	default:
		return Dataset{}, fmt.Errorf("unknown scenario %q, valid: %v", scenario, Scenarios())
	}

	return ds, nil
}

// Check verifies that every input file the operations need exists.
func (d Dataset) Check() error {
	for _, path := range []string{d.CSVPath, d.ParquetPath, d.ItemsPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("dataset file %s: %w", path, err)
		}
	}

	return nil
}

// OpenCSV opens the scenario's main CSV in its tier encoding.
func (d Dataset) OpenCSV() (io.ReadCloser, error) {
	return Open(d.CSVPath, d.Encoding)
}

// OpenItems opens the items lookup, which is always latin-1.
func (d Dataset) OpenItems() (io.ReadCloser, error) {
	return Open(d.ItemsPath, EncodingLatin1)
}

// OutputCSV is the write_csv target for this scenario's trials.
func (d Dataset) OutputCSV() string {
	return filepath.Join(d.OutDir, "output.csv")
}

// OutputParquet is the write_parquet target for this scenario's trials.
func (d Dataset) OutputParquet() string {
	return filepath.Join(d.OutDir, "output.parquet")
}

// Open opens path for reading, decoding latin-1 sources so every
// consumer sees UTF-8.
func Open(path, encoding string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if encoding != EncodingLatin1 {
		return f, nil
	}

	return &decodedFile{
		Reader: transform.NewReader(f, charmap.ISO8859_1.NewDecoder()),
		file:   f,
	}, nil
}

type decodedFile struct {
	io.Reader
	file *os.File
}

func (d *decodedFile) Close() error { return d.file.Close() }

// NewWriter wraps w so UTF-8 text lands in the requested encoding.
// Close flushes the encoder, not w.
func NewWriter(w io.Writer, encoding string) io.WriteCloser {
	if encoding != EncodingLatin1 {
		return nopWriteCloser{w}
	}

	return transform.NewWriter(w, charmap.ISO8859_1.NewEncoder())
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
