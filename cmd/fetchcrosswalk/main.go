package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// HUD USPS crosswalk API. type=1 selects the ZIP to census tract table.
const hudEndpoint = "https://www.huduser.gov/hudapi/public/usps"

type hudResult struct {
	Zip      string  `json:"zip"`
	Geoid    string  `json:"geoid"`
	ResRatio float64 `json:"res_ratio"`
}

type hudResponse struct {
	Data struct {
		Results []hudResult `json:"results"`
	} `json:"data"`
}

func fetch(apiKey, query, year, quarter string) (*hudResponse, error) {
	params := url.Values{}
	params.Set("type", "1")
	params.Set("query", query)
	if year != "" {
		params.Set("year", year)
	}
	if quarter != "" {
		params.Set("quarter", quarter)
	}

	req, err := http.NewRequest("GET", hudEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HUD API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HUD API returned %s", resp.Status)
	}

	var payload hudResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode HUD API response: %w", err)
	}
	return &payload, nil
}

func writeCrosswalk(path string, results []hudResult) (int, int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, 0, err
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"ZIP", "STATE", "COUNTY", "TRACT", "RES_RATIO"}); err != nil {
		return 0, 0, err
	}

	written, skipped := 0, 0
	for _, r := range results {
		// The geoid is the full 11-digit tract FIPS; the reference file
		// keeps the state, county, and tract segments separate.
		if len(r.Geoid) != 11 {
			skipped++
			continue
		}
		row := []string{
			r.Zip,
			r.Geoid[:2],
			r.Geoid[2:5],
			r.Geoid[5:],
			strconv.FormatFloat(r.ResRatio, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return written, skipped, err
		}
		written++
	}

	writer.Flush()
	return written, skipped, writer.Error()
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	out := flag.String("out", "./data/reference/hud_zip_tract_crosswalk.csv", "path of the crosswalk CSV to write")
	query := flag.String("query", "All", "HUD API query: All, a state abbreviation, or a single ZIP")
	year := flag.String("year", "", "crosswalk vintage year (defaults to the latest published)")
	quarter := flag.String("quarter", "", "crosswalk vintage quarter 1-4")
	flag.Parse()

	apiKey := os.Getenv("HUD_API_KEY")
	if apiKey == "" {
		log.Fatal("HUD_API_KEY environment variable is not set")
	}

	log.Printf("Fetching HUD ZIP-tract crosswalk (query=%s)...", *query)
	payload, err := fetch(apiKey, *query, *year, *quarter)
	if err != nil {
		log.Fatal(err)
	}

	written, skipped, err := writeCrosswalk(*out, payload.Data.Results)
	if err != nil {
		log.Fatal(err)
	}
	if skipped > 0 {
		log.Printf("Skipped %d rows with malformed geoids", skipped)
	}
	log.Printf("Wrote %s (%d rows)", *out, written)
}
