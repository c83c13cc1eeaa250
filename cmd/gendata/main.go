package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// tractSeed describes one crosswalk tract and how it appears in the CEJST
// dataset. inCejst false leaves the tract out of the dataset entirely, which
// downstream classifies as not eligible.
type tractSeed struct {
	code          string
	ratio         float64
	disadvantaged bool
	energyBurden  bool
	pm25          bool
	inCejst       bool
}

type location struct {
	zip         string
	city        string
	state       string
	stateFIPS   string
	countyFIPS  string
	inCrosswalk bool
	tracts      []tractSeed
}

func (l location) geoid(t tractSeed) string {
	return l.stateFIPS + l.countyFIPS + t.code
}

// locations is the synthetic book of business. ZIPs, FIPS codes, and ratios
// are realistic; the CEJST flags are invented to cover every verdict the
// classifier can reach.
var locations = []location{
	{"00211", "Charlestown", "NH", "33", "019", true, []tractSeed{
		{"975700", 0.60, true, true, false, true},
		{"975800", 0.40, false, false, false, true},
	}},
	{"02108", "Boston", "MA", "25", "025", true, []tractSeed{
		{"030300", 1.0, true, false, true, true},
	}},
	{"10007", "New York", "NY", "36", "061", true, []tractSeed{
		{"002100", 0.55, false, false, false, true},
		{"001501", 0.45, true, true, true, true},
	}},
	{"19103", "Philadelphia", "PA", "42", "101", true, []tractSeed{
		{"000401", 1.0, false, false, false, true},
	}},
	{"30303", "Atlanta", "GA", "13", "121", true, []tractSeed{
		{"001900", 0.70, false, true, false, true},
		{"002100", 0.30, false, false, false, true},
	}},
	{"48226", "Detroit", "MI", "26", "163", true, []tractSeed{
		{"520700", 1.0, true, true, false, true},
	}},
	{"60602", "Chicago", "IL", "17", "031", true, []tractSeed{
		{"320100", 1.0, false, false, false, true},
	}},
	{"73102", "Oklahoma City", "OK", "40", "109", true, []tractSeed{
		{"103200", 1.0, false, false, false, false},
	}},
	{"78701", "Austin", "TX", "48", "453", true, []tractSeed{
		{"001100", 1.0, false, false, false, true},
	}},
	{"80202", "Denver", "CO", "08", "031", true, []tractSeed{
		{"002300", 0.70, false, false, true, true},
		{"003500", 0.30, false, false, false, true},
	}},
	{"94105", "San Francisco", "CA", "06", "075", true, []tractSeed{
		{"061500", 1.0, false, false, false, true},
	}},
	{"98101", "Seattle", "WA", "53", "033", true, []tractSeed{
		{"008100", 1.0, true, true, false, true},
	}},
	// Elko has no crosswalk coverage, so its rows exercise the
	// ZIP_NOT_IN_HUD_TABLE path.
	{"89801", "Elko", "NV", "32", "007", false, []tractSeed{}},
}

var (
	products = []string{"Performance Bond", "Payment Bond", "License & Permit Bond", "Court Bond", "Supply Contract Bond"}
	streets  = []string{"Main St", "Oak Ave", "Industrial Pkwy", "Commerce Dr", "Harbor Blvd", "Mill Rd", "Canal St", "Depot Sq", "Frontage Rd", "Market St"}

	principals = []string{
		"Granite State Builders LLC", "Keystone Contracting Corp", "Lakeshore Mechanical Inc",
		"Summit Ridge Construction", "Bluebonnet Paving Co", "Cascade Electric Group",
		"Prairie Wind Excavation", "Harbor Line Marine Services", "Redstone Roofing LLC",
		"Ironworks Fabrication Co", "Monarch Environmental Inc", "Foothill Utilities Contracting",
		"Beacon Hill Restoration", "Five Rivers Landscaping", "Copperfield Plumbing Corp",
		"Northgate Steel Erectors",
	}
	brokers = []string{
		"Hargrove & Whitfield", "Meridian Surety Partners", "Cornerstone Bond Agency",
		"Atlas Risk Brokers", "Pinnacle Surety Group", "Lighthouse Insurance Services",
		"Crestview Bonding Co", "Juniper & Slate",
	}
)

// dialect is one carrier's export template: which header spelling it uses
// and how it writes dates and tagged ZIP cells.
type dialect struct {
	headers    []string
	dateLayout string
	tagZipRate float64
}

var alphaDialect = dialect{
	headers: []string{
		"Effective Date", "Expiration Date", "Gross Written Premium", "Net Written Premium",
		"Commission Amount", "Ceded Commission Amount", "Commission Rate %", "Quota Share %",
		"Penal Amount", "Product", "Premium State", "Principal / Account Name",
		"Principal / Account Mailing Address", "Zip", "Broker Name", "Broker State",
		"Obligee Name", "Obligee State",
	},
	dateLayout: "2006-01-02",
	tagZipRate: 0.6,
}

var betaDialect = dialect{
	headers: []string{
		"Effective Date", "Expiration Date", "Gross Premium", "Net Premium",
		"Commission", "Ceded Commission", "Commission %", "Quota Share %",
		"Penal Sum", "Product Name", "State", "Principal Name",
		"Principal Address", "Zip Code", "Broker", "Broker State",
		"Obligee", "Obligee State",
	},
	dateLayout: "01/02/2006",
	tagZipRate: 0.2,
}

var gammaDialect = dialect{
	headers:    alphaDialect.headers,
	dateLayout: "2006-01-02",
	tagZipRate: 0.5,
}

type bond struct {
	effective  time.Time
	expiration time.Time

	gross      int64
	net        int64
	commission int64
	ceded      int64
	penal      int64
	ratePct    int
	quotaPct   int

	product      string
	state        string
	principal    string
	address      string
	taggedZip    string
	broker       string
	brokerState  string
	obligee      string
	obligeeState string
}

func randomBond(rng *rand.Rand, loc location, d dialect) bond {
	effective := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rng.Intn(85))

	gross := int64(500_000 + rng.Intn(49_500_001)) // $5,000.00 to $500,000.00 in cents
	ratePct := 15 + rng.Intn(16)
	commission := gross * int64(ratePct) / 100
	ceded := commission * 30 / 100

	addrZip := loc.zip
	if rng.Intn(5) == 0 {
		addrZip = fmt.Sprintf("%s-%04d", loc.zip, rng.Intn(10000))
	}
	taggedZip := ""
	if rng.Float64() < d.tagZipRate {
		taggedZip = loc.zip
	}

	return bond{
		effective:    effective,
		expiration:   effective.AddDate(1, 0, 0),
		gross:        gross,
		net:          gross - commission,
		commission:   commission,
		ceded:        ceded,
		penal:        gross * int64(2+rng.Intn(4)),
		ratePct:      ratePct,
		quotaPct:     []int{50, 75, 100}[rng.Intn(3)],
		product:      products[rng.Intn(len(products))],
		state:        loc.state,
		principal:    principals[rng.Intn(len(principals))],
		address:      fmt.Sprintf("%d %s, %s, %s %s", 100+rng.Intn(8900), streets[rng.Intn(len(streets))], loc.city, loc.state, addrZip),
		taggedZip:    taggedZip,
		broker:       brokers[rng.Intn(len(brokers))],
		brokerState:  loc.state,
		obligee:      "City of " + loc.city,
		obligeeState: loc.state,
	}
}

func (b bond) row(rng *rand.Rand, dateLayout string) []string {
	return []string{
		b.effective.Format(dateLayout),
		b.expiration.Format(dateLayout),
		money(rng, b.gross),
		money(rng, b.net),
		money(rng, b.commission),
		money(rng, b.ceded),
		percent(rng, b.ratePct),
		strconv.Itoa(b.quotaPct),
		money(rng, b.penal),
		b.product,
		b.state,
		b.principal,
		b.address,
		b.taggedZip,
		b.broker,
		b.brokerState,
		b.obligee,
		b.obligeeState,
	}
}

// money renders cents the way carrier exports actually arrive: sometimes
// plain, sometimes with a dollar sign, sometimes with thousands separators.
func money(rng *rand.Rand, cents int64) string {
	plain := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	switch rng.Intn(3) {
	case 0:
		return plain
	case 1:
		return "$" + withCommas(plain)
	default:
		return withCommas(plain)
	}
}

func percent(rng *rand.Rand, pct int) string {
	if rng.Intn(2) == 0 {
		return strconv.Itoa(pct) + "%"
	}
	return strconv.Itoa(pct)
}

func withCommas(plain string) string {
	dot := len(plain) - 3 // always has two decimals
	intPart, fracPart := plain[:dot], plain[dot:]
	var out []byte
	for i, ch := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}
	return string(out) + fracPart
}

// carrierRows generates one carrier file. The fixed-index overrides plant
// the malformed rows every demo batch should contain: a missing required
// address, a five-digit street number colliding with the ZIP, and an
// unparseable premium cell.
func carrierRows(rng *rand.Rand, carrier string, count int, d dialect, book []location) [][]string {
	rows := [][]string{d.headers}
	for i := 0; i < count; i++ {
		loc := book[rng.Intn(len(book))]
		b := randomBond(rng, loc, d)
		row := b.row(rng, d.dateLayout)

		switch {
		case carrier == "Beta" && i == 4:
			row[12] = ""
			row[13] = ""
		case carrier == "Alpha" && i == 11:
			row[12] = "45210 Canal St, Chicago, IL 60602"
			row[13] = ""
		case carrier == "Gamma" && i == 8:
			row[2] = "TBD"
		}

		rows = append(rows, row)
	}
	return rows
}

func crosswalkRows() [][]string {
	rows := [][]string{{"ZIP", "STATE", "COUNTY", "TRACT", "RES_RATIO"}}
	for _, loc := range locations {
		if !loc.inCrosswalk {
			continue
		}
		for _, t := range loc.tracts {
			rows = append(rows, []string{
				loc.zip, loc.stateFIPS, loc.countyFIPS, t.code,
				strconv.FormatFloat(t.ratio, 'f', -1, 64),
			})
		}
	}
	return rows
}

func cejstRows() [][]string {
	rows := [][]string{{
		"Census tract 2010 ID",
		"Identified as disadvantaged",
		"Greater than or equal to the 90th percentile for energy burden and is low income?",
		"Greater than or equal to the 90th percentile for PM2.5 exposure and is low income?",
	}}
	flag := func(b bool) string {
		if b {
			return "True"
		}
		return "False"
	}
	for _, loc := range locations {
		for _, t := range loc.tracts {
			if !t.inCejst {
				continue
			}
			rows = append(rows, []string{loc.geoid(t), flag(t.disadvantaged), flag(t.energyBurden), flag(t.pm25)})
		}
	}
	// Unreferenced neighbors so the dataset is not suspiciously minimal.
	extras := [][]string{
		{"36061020500", "True", "True", "False"},
		{"17031320200", "False", "False", "False"},
		{"48453001202", "False", "False", "True"},
		{"06075061000", "True", "False", "True"},
		{"53033008200", "False", "False", "False"},
		{"25025030400", "True", "True", "True"},
	}
	return append(rows, extras...)
}

func writeCSVFile(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

func writeXLSXFile(path string, rows [][]string) error {
	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := workbook.SaveAs(path); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// bookFor restricts each carrier to its own slice of the country so the
// per-ZIP accumulation report has both single-carrier and shared ZIPs.
func bookFor(zips ...string) []location {
	var book []location
	for _, zip := range zips {
		for _, loc := range locations {
			if loc.zip == zip {
				book = append(book, loc)
			}
		}
	}
	return book
}

func main() {
	out := flag.String("out", "./data", "directory to write raw/ and reference/ fixtures into")
	seed := flag.Int64("seed", 42, "rng seed, fixed by default so batches are reproducible")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	rawDir := filepath.Join(*out, "raw")
	refDir := filepath.Join(*out, "reference")
	for _, dir := range []string{rawDir, refDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	alphaBook := bookFor("00211", "02108", "10007", "19103", "78701", "80202")
	betaBook := bookFor("10007", "30303", "48226", "60602", "78701", "89801", "94105")
	gammaBook := bookFor("73102", "78701", "80202", "94105", "98101", "02108")

	files := []struct {
		name string
		rows [][]string
		xlsx bool
	}{
		{filepath.Join(rawDir, "Alpha_2025Q3.csv"), carrierRows(rng, "Alpha", 45, alphaDialect, alphaBook), false},
		{filepath.Join(rawDir, "Beta_2025Q3.csv"), carrierRows(rng, "Beta", 40, betaDialect, betaBook), false},
		{filepath.Join(rawDir, "Gamma_2025Q3.xlsx"), carrierRows(rng, "Gamma", 35, gammaDialect, gammaBook), true},
		{filepath.Join(refDir, "hud_zip_tract_crosswalk.csv"), crosswalkRows(), false},
		{filepath.Join(refDir, "cejst_communities.csv"), cejstRows(), false},
	}

	for _, f := range files {
		var err error
		if f.xlsx {
			err = writeXLSXFile(f.name, f.rows)
		} else {
			err = writeCSVFile(f.name, f.rows)
		}
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Wrote %s (%d rows)", f.name, len(f.rows)-1)
	}
}
