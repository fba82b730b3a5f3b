package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	mrand "math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// ufs are the IBGE state codes and abbreviations used by school records.
var ufs = []struct {
	code int
	sg   string
}{
	{11, "RO"}, {12, "AC"}, {13, "AM"}, {14, "RR"}, {15, "PA"},
	{16, "AP"}, {17, "TO"}, {21, "MA"}, {22, "PI"}, {23, "CE"},
	{24, "RN"}, {25, "PB"}, {26, "PE"}, {27, "AL"}, {28, "SE"},
	{29, "BA"}, {31, "MG"}, {32, "ES"}, {33, "RJ"}, {35, "SP"},
	{41, "PR"}, {42, "SC"}, {43, "RS"}, {50, "MS"}, {51, "MT"},
	{52, "GO"}, {53, "DF"},
}

var municipalities = []string{
	"São Paulo", "Rio de Janeiro", "Belo Horizonte", "Brasília",
	"Salvador", "Fortaleza", "Curitiba", "Manaus", "Recife",
	"Goiânia", "Belém", "Porto Alegre", "São Luís", "Maceió",
	"Campo Grande", "Natal", "Teresina", "João Pessoa", "Aracaju",
	"Cuiabá", "Florianópolis", "Macapá", "Porto Velho", "Boa Vista",
	"Palmas", "Rio Branco", "Vitória", "Uberlândia", "Sorocaba",
	"Niterói", "Juiz de Fora", "Londrina", "Joinville", "Santarém",
	"Caxias do Sul", "Feira de Santana",
}

var sexes = []string{"M", "F"}

// areas maps each exam area to the first of its booklet codes.
var areas = []struct {
	sg   string
	base int
}{
	{"CN", 1200}, {"CH", 1230}, {"LC", 1260}, {"MT", 1290},
}

const (
	provasPerArea = 30
	itemsPerProva = 45

	absenteeRate = 0.25
)

// header is the column layout of the generated microdata files.
var header = []string{
	"NU_INSCRICAO", "TP_FAIXA_ETARIA", "TP_SEXO",
	"CO_UF_ESC", "SG_UF_ESC", "NO_MUNICIPIO_ESC", "CO_PROVA_MT",
	"NU_NOTA_CN", "NU_NOTA_CH", "NU_NOTA_LC", "NU_NOTA_MT",
	"NU_NOTA_REDACAO",
}

// Config controls synthetic microdata generation.
type Config struct {
	Rows int
	Seed int64
}

// Summary counts what a generation produced.
type Summary struct {
	Rows      int
	Absentees int
}

// Generator produces deterministic exam microdata from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Generate writes cfg.Rows semicolon-delimited candidate records to w.
// First-day scores go missing together at a fixed absentee rate; the
// mathematics score and state code are always present, so filters and
// aggregations over them see every row.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	var summary Summary

	if err := cw.Write(header); err != nil {
		return summary, fmt.Errorf("write header: %w", err)
	}

	mt := areas[len(areas)-1]

	for i := 0; i < g.cfg.Rows; i++ {
		uf := ufs[g.rng.Intn(len(ufs))]

		record := []string{
			strconv.FormatInt(230000000000+int64(i), 10),
			strconv.Itoa(1 + g.rng.Intn(20)),
			sexes[g.rng.Intn(len(sexes))],
			strconv.Itoa(uf.code),
			uf.sg,
			municipalities[g.rng.Intn(len(municipalities))],
			strconv.Itoa(mt.base + g.rng.Intn(provasPerArea)),
		}

		if g.rng.Float64() < absenteeRate {
			record = append(record, "", "", "", g.score(520, 110), "")
			summary.Absentees++
		} else {
			record = append(record,
				g.score(480, 75),
				g.score(510, 80),
				g.score(505, 65),
				g.score(520, 110),
				g.essayScore(),
			)
		}

		if err := cw.Write(record); err != nil {
			return summary, fmt.Errorf("write record %d: %w", i, err)
		}

		summary.Rows++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return summary, fmt.Errorf("flush: %w", err)
	}

	return summary, nil
}

// GenerateItems writes the booklet items lookup to w: every area's
// booklet codes, one row per item. Booklet codes repeat across their
// items, so a join against this file must deduplicate first.
func (g *Generator) GenerateItems(w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	itemsHeader := []string{"CO_POSICAO", "CO_ITEM", "CO_PROVA", "SG_AREA", "TX_GABARITO"}
	if err := cw.Write(itemsHeader); err != nil {
		return 0, fmt.Errorf("write items header: %w", err)
	}

	options := []string{"A", "B", "C", "D", "E"}
	rows := 0

	for _, area := range areas {
		for p := 0; p < provasPerArea; p++ {
			for pos := 1; pos <= itemsPerProva; pos++ {
				record := []string{
					strconv.Itoa(pos),
					strconv.Itoa(10000 + g.rng.Intn(90000)),
					strconv.Itoa(area.base + p),
					area.sg,
					options[g.rng.Intn(len(options))],
				}
				if err := cw.Write(record); err != nil {
					return rows, fmt.Errorf("write item row: %w", err)
				}
				rows++
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flush items: %w", err)
	}

	return rows, nil
}

// score draws a normal score around mu, clamped to the 0..1000 scale,
// one decimal place.
func (g *Generator) score(mu, sigma float64) string {
	v := g.rng.NormFloat64()*sigma + mu
	if v < 0 {
		v = 0
	}
	if v > 1000 {
		v = 1000
	}

	return strconv.FormatFloat(v, 'f', 1, 64)
}

// essayScore draws an essay grade, which is scored in steps of 20.
func (g *Generator) essayScore() string {
	return strconv.FormatFloat(float64(20*g.rng.Intn(51)), 'f', 1, 64)
}

// WriteScenario generates the main CSV for one tier at its fixed path
// under root, in the tier's encoding.
func WriteScenario(root, scenario string, cfg Config) (Summary, error) {
	ds, err := ForScenario(root, scenario)
	if err != nil {
		return Summary{}, err
	}

	if err := os.MkdirAll(filepath.Dir(ds.CSVPath), 0o755); err != nil {
		return Summary{}, fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(ds.CSVPath)
	if err != nil {
		return Summary{}, fmt.Errorf("create %s: %w", ds.CSVPath, err)
	}
	defer f.Close()

	enc := NewWriter(f, ds.Encoding)

	summary, err := NewGenerator(cfg).Generate(enc)
	if err != nil {
		return summary, fmt.Errorf("generate %s: %w", scenario, err)
	}

	if err := enc.Close(); err != nil {
		return summary, fmt.Errorf("flush encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		return summary, fmt.Errorf("close %s: %w", ds.CSVPath, err)
	}

	return summary, nil
}

// WriteItems generates the items lookup at its fixed path under root.
func WriteItems(root string, seed int64) (int, error) {
	path := filepath.Join(root, dataDir, itemsName)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := NewWriter(f, EncodingLatin1)

	rows, err := NewGenerator(Config{Seed: seed}).GenerateItems(enc)
	if err != nil {
		return rows, fmt.Errorf("generate items: %w", err)
	}

	if err := enc.Close(); err != nil {
		return rows, fmt.Errorf("flush encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		return rows, fmt.Errorf("close %s: %w", path, err)
	}

	return rows, nil
}
